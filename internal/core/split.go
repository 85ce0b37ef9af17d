package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoParticipants = errors.New("no participants to split between")
	ErrInvalidWeight  = errors.New("invalid split weight")
)

// Weight assigns a relative share of an expense to a participant.
type Weight struct {
	ParticipantID ParticipantID
	Weight        decimal.Decimal
}

// SplitEqually divides total into equal shares at Precision. Minor units that
// do not divide evenly go one each to the first participants in order, so the
// shares always add up to the rounded total.
func SplitEqually(total decimal.Decimal, participants []ParticipantID) ([]Split, error) {
	weights := make([]Weight, len(participants))
	for i, id := range participants {
		weights[i] = Weight{ParticipantID: id, Weight: decimal.NewFromInt(1)}
	}
	return SplitByWeight(total, weights)
}

// SplitByWeight divides total proportionally to the weights. Zero weights are
// allowed (the participant owes nothing) but at least one weight must be
// positive and none negative.
func SplitByWeight(total decimal.Decimal, weights []Weight) ([]Split, error) {
	if len(weights) == 0 {
		return nil, ErrNoParticipants
	}
	if total.IsNegative() {
		return nil, ErrInvalidAmount
	}

	wsum := decimal.Zero
	seen := make(map[ParticipantID]struct{}, len(weights))
	for _, w := range weights {
		if w.Weight.IsNegative() {
			return nil, ErrInvalidWeight
		}
		if _, dup := seen[w.ParticipantID]; dup {
			return nil, ErrDuplicateSplit
		}
		seen[w.ParticipantID] = struct{}{}
		wsum = wsum.Add(w.Weight)
	}
	if !wsum.IsPositive() {
		return nil, ErrInvalidWeight
	}

	units := MinorUnits(total)
	shares := make([]int64, len(weights))
	var allocated int64
	for i, w := range weights {
		shares[i] = decimal.NewFromInt(units).Mul(w.Weight).Div(wsum).Floor().IntPart()
		allocated += shares[i]
	}
	// Hand out what flooring left over; only weighted participants take part.
	for i := 0; allocated < units; i = (i + 1) % len(weights) {
		if !weights[i].Weight.IsPositive() {
			continue
		}
		shares[i]++
		allocated++
	}

	splits := make([]Split, len(weights))
	for i, w := range weights {
		splits[i] = Split{ParticipantID: w.ParticipantID, Amount: FromMinorUnits(shares[i])}
	}
	return splits, nil
}
