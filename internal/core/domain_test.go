package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGroupValidate(t *testing.T) {
	if err := (Group{Name: "Trip"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Group{Name: "  "}).Validate(); err != ErrEmptyGroupName {
		t.Fatalf("expected ErrEmptyGroupName, got %v", err)
	}
	if err := (Group{Name: strings.Repeat("x", 201)}).Validate(); err == nil {
		t.Fatalf("expected error for long name")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		PayerID:     1,
		Description: "Dinner",
		Amount:      amt("30"),
		Splits:      []Split{{ParticipantID: 1, Amount: amt("15")}, {ParticipantID: 2, Amount: amt("15")}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name string
		mod  func(e *Expense)
		want error
	}{
		{"empty description", func(e *Expense) { e.Description = " " }, ErrEmptyDescription},
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"no payer", func(e *Expense) { e.PayerID = 0 }, ErrMissingPayer},
		{"no splits", func(e *Expense) { e.Splits = nil }, ErrNoSplits},
		{"negative split", func(e *Expense) {
			e.Splits = []Split{{ParticipantID: 1, Amount: amt("40")}, {ParticipantID: 2, Amount: amt("-10")}}
		}, ErrInvalidAmount},
		{"duplicate split", func(e *Expense) {
			e.Splits = []Split{{ParticipantID: 2, Amount: amt("15")}, {ParticipantID: 2, Amount: amt("15")}}
		}, ErrDuplicateSplit},
		{"split mismatch", func(e *Expense) {
			e.Splits = []Split{{ParticipantID: 1, Amount: amt("15")}, {ParticipantID: 2, Amount: amt("10")}}
		}, ErrSplitMismatch},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			e.Splits = append([]Split(nil), good.Splits...)
			tc.mod(&e)
			if err := e.Validate(); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParticipantID(t *testing.T) {
	id, err := ParseParticipantID("42")
	if err != nil || id != 42 || id.String() != "42" {
		t.Fatalf("unexpected parse: id=%v err=%v", id, err)
	}
	if _, err := ParseParticipantID("abc"); err == nil {
		t.Fatalf("expected error")
	}
	if !ParticipantID(1).Less(2) || ParticipantID(2).Less(1) {
		t.Fatalf("unexpected ordering")
	}
}
