package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// MemberBalance is one row of a group's balance sheet.
type MemberBalance struct {
	ParticipantID ParticipantID
	Amount        decimal.Decimal
}

// Settlement is the computed state of a group: every member's net balance
// and the transfers that clear them.
type Settlement struct {
	GroupID      string
	ExpenseCount int
	Total        decimal.Decimal // sum of expense amounts
	Balances     []MemberBalance
	Transfers    []Transfer
	ComputedAt   time.Time
}

// Clone returns a copy whose slices can be modified without touching s.
func (s Settlement) Clone() Settlement {
	s.Balances = slices.Clone(s.Balances)
	s.Transfers = slices.Clone(s.Transfers)
	return s
}

// Settle runs the full pipeline over a snapshot of a group's expenses.
// Members without any expense still get a zero row in Balances, which is
// ordered by participant ID.
func Settle(groupID string, members []ParticipantID, expenses []Expense) (Settlement, error) {
	balances := Aggregate(expenses)
	transfers, err := Simplify(balances)
	if err != nil {
		return Settlement{}, err
	}

	sheet := balances.Clone()
	for _, id := range members {
		if _, ok := sheet[id]; !ok {
			sheet[id] = decimal.Zero
		}
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	rows := make([]MemberBalance, 0, len(sheet))
	for _, id := range sheet.Participants() {
		rows = append(rows, MemberBalance{ParticipantID: id, Amount: sheet[id]})
	}

	return Settlement{
		GroupID:      groupID,
		ExpenseCount: len(expenses),
		Total:        total,
		Balances:     rows,
		Transfers:    transfers,
		ComputedAt:   time.Now().UTC(),
	}, nil
}
