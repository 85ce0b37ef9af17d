package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance maps a participant to their signed net balance.
// Positive means the participant is owed money, negative means they owe.
type Balance map[ParticipantID]decimal.Decimal

// Aggregate folds expenses into net balances. Each expense credits its payer
// with the total and debits every split participant with their share.
//
// Nothing is validated: zero-split expenses only credit the payer, and a payer
// listed in their own splits is credited and debited like anyone else.
func Aggregate(expenses []Expense) Balance {
	balances := make(Balance)
	for i := range expenses {
		e := &expenses[i]
		balances[e.PayerID] = balances[e.PayerID].Add(e.Amount)
		for _, s := range e.Splits {
			balances[s.ParticipantID] = balances[s.ParticipantID].Sub(s.Amount)
		}
	}
	return balances
}

// Sum adds up every entry. A well-formed aggregation sums to zero.
func (b Balance) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range b {
		sum = sum.Add(v)
	}
	return sum
}

// Clone returns an independent copy.
func (b Balance) Clone() Balance {
	out := make(Balance, len(b))
	for id, v := range b {
		out[id] = v
	}
	return out
}

// Apply returns a copy of b with every transfer applied: the sender's balance
// rises and the receiver's falls by the transfer amount.
func (b Balance) Apply(transfers []Transfer) Balance {
	out := b.Clone()
	for _, t := range transfers {
		out[t.From] = out[t.From].Add(t.Amount)
		out[t.To] = out[t.To].Sub(t.Amount)
	}
	return out
}

// Participants returns the identities in ascending order.
func (b Balance) Participants() []ParticipantID {
	ids := make([]ParticipantID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Settled reports whether every entry is within Epsilon of zero, so Simplify
// would emit no transfer.
func (b Balance) Settled() bool {
	for _, v := range b {
		if !IsNegligible(v) {
			return false
		}
	}
	return true
}
