// Package core holds the ledger domain types and the balance-netting engine.
//
// This file contains the money constants shared by the engine and the helpers
// for parsing and rounding amounts. All amounts are exact decimals; binary
// floating point is only used when a value leaves the system for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits of a currency minor unit.
const Precision int32 = 2

// Epsilon is the tolerance below which a balance counts as settled.
var Epsilon = decimal.New(1, -Precision)

// IsSettled reports whether |amount| is below Epsilon. Simplify uses it to
// decide when a matched participant is done.
func IsSettled(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(Epsilon)
}

// IsNegligible reports whether |amount| is at most Epsilon. Such balances take
// part in no transfer.
func IsNegligible(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(Epsilon)
}

// RoundAmount rounds to Precision digits, half away from zero.
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Precision)
}

// ParseAmount converts a user supplied decimal string into an amount.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds half-up
// to Precision digits. Signs, exponents and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundAmount(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MinorUnits returns the amount expressed in minor units (cents), rounded.
func MinorUnits(amount decimal.Decimal) int64 {
	return RoundAmount(amount).Shift(Precision).IntPart()
}

// FromMinorUnits builds an amount from minor units (cents).
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -Precision)
}
