package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnbalancedLedger is reported when balances do not net to zero, so one
// side of the matching runs out while the other still holds money.
var ErrUnbalancedLedger = errors.New("unbalanced ledger")

// UnbalancedError carries the balances left unmatched when Simplify stops.
type UnbalancedError struct {
	Residual Balance
}

func (e *UnbalancedError) Error() string {
	var b strings.Builder
	b.WriteString("unbalanced ledger: residual")
	for _, id := range e.Residual.Participants() {
		fmt.Fprintf(&b, " %s=%s", id, e.Residual[id].String())
	}
	return b.String()
}

func (e *UnbalancedError) Is(target error) bool {
	return target == ErrUnbalancedLedger
}

type party struct {
	id      ParticipantID
	balance decimal.Decimal
}

// Simplify reduces net balances to a short list of settling transfers using
// greedy matching: the largest debtor pays the largest creditor, and whichever
// side is exhausted moves on to the next.
//
// Debtors are ordered by balance ascending and creditors descending. Exactly
// equal balances are ordered by ascending ParticipantID, so the result does not
// depend on map iteration order. Amounts are rounded to Precision only when a
// transfer is emitted; the running balances stay exact.
//
// Balances within Epsilon of zero, inclusive, are left out of the matching.
// Balances that do not sum to zero leave residue on one side; Simplify then
// returns an *UnbalancedError instead of a partial list. Residue in a ledger
// whose total is itself within Epsilon is the excluded dust and is not an
// error. The input map is never modified.
func Simplify(balances Balance) ([]Transfer, error) {
	var debtors, creditors []party
	for id, amount := range balances {
		switch {
		case IsNegligible(amount):
		case amount.IsNegative():
			debtors = append(debtors, party{id: id, balance: amount})
		default:
			creditors = append(creditors, party{id: id, balance: amount})
		}
	}

	sort.Slice(debtors, func(i, j int) bool {
		if c := debtors[i].balance.Cmp(debtors[j].balance); c != 0 {
			return c < 0
		}
		return debtors[i].id.Less(debtors[j].id)
	})
	sort.Slice(creditors, func(i, j int) bool {
		if c := creditors[i].balance.Cmp(creditors[j].balance); c != 0 {
			return c > 0
		}
		return creditors[i].id.Less(creditors[j].id)
	})

	transfers := make([]Transfer, 0, max(len(debtors), len(creditors)))
	d, c := 0, 0
	for d < len(debtors) && c < len(creditors) {
		debtor := &debtors[d]
		creditor := &creditors[c]

		settle := decimal.Min(debtor.balance.Abs(), creditor.balance)
		transfers = append(transfers, Transfer{
			From:   debtor.id,
			To:     creditor.id,
			Amount: RoundAmount(settle),
		})

		debtor.balance = debtor.balance.Add(settle)
		creditor.balance = creditor.balance.Sub(settle)

		// Both may settle in the same step.
		if IsSettled(debtor.balance) {
			d++
		}
		if IsSettled(creditor.balance) {
			c++
		}
	}

	// Leftovers in a ledger that nets to zero are the dust left out above.
	if (d < len(debtors) || c < len(creditors)) && !IsNegligible(balances.Sum()) {
		residual := make(Balance)
		for _, p := range debtors[d:] {
			residual[p.id] = p.balance
		}
		for _, p := range creditors[c:] {
			residual[p.id] = p.balance
		}
		return nil, &UnbalancedError{Residual: residual}
	}

	return transfers, nil
}
