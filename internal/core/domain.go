package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 200

type (
	Group struct {
		ID        string
		Name      string
		CreatedBy ParticipantID
		CreatedAt time.Time
	}

	Member struct {
		ID        ParticipantID
		FirstName string
		Username  string // optional
		JoinedAt  time.Time
	}

	// Split is the portion of one expense owed by one participant.
	Split struct {
		ParticipantID ParticipantID
		Amount        decimal.Decimal
		IsPaid        bool // stored for the UI, never read by the engine
	}

	Expense struct {
		ID          string
		GroupID     string
		PayerID     ParticipantID
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
		Splits      []Split
	}

	// Transfer is a single settling payment from a debtor to a creditor.
	Transfer struct {
		From   ParticipantID
		To     ParticipantID
		Amount decimal.Decimal
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyGroupName   = errors.New("empty group name")
	ErrMissingPayer     = errors.New("missing payer")
	ErrNoSplits         = errors.New("expense has no splits")
	ErrSplitMismatch    = errors.New("splits do not add up to the expense amount")
	ErrDuplicateSplit   = errors.New("participant appears twice in splits")
)

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGroupName
	}
	if len(g.Name) > maxDescriptionLength {
		return errors.New("group name too long (max 200 characters)")
	}
	return nil
}

// Validate checks an expense on the write path. Aggregate never calls it:
// the engine nets whatever numbers it is handed.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > maxDescriptionLength {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.PayerID == 0 {
		return ErrMissingPayer
	}
	if len(e.Splits) == 0 {
		return ErrNoSplits
	}
	seen := make(map[ParticipantID]struct{}, len(e.Splits))
	sum := decimal.Zero
	for _, s := range e.Splits {
		if s.Amount.IsNegative() {
			return ErrInvalidAmount
		}
		if _, dup := seen[s.ParticipantID]; dup {
			return ErrDuplicateSplit
		}
		seen[s.ParticipantID] = struct{}{}
		sum = sum.Add(s.Amount)
	}
	if !IsSettled(sum.Sub(e.Amount)) {
		return ErrSplitMismatch
	}
	return nil
}

// SplitTotal returns the sum of the split amounts.
func (e Expense) SplitTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range e.Splits {
		sum = sum.Add(s.Amount)
	}
	return sum
}
