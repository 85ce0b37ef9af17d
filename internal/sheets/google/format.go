package google

import (
	"time"

	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
	ports "wisesplit/internal/sheets"
)

// settlementRows lays a settlement out as sheet rows: a two-line summary,
// the per-member balances, then the transfers that settle them.
func settlementRows(s core.Settlement, names ports.Names) [][]interface{} {
	money := func(d decimal.Decimal) string { return d.StringFixed(core.Precision) }

	rows := [][]interface{}{
		{"Group", s.GroupID, "Computed at", s.ComputedAt.UTC().Format(time.RFC3339)},
		{"Expenses", s.ExpenseCount, "Total", money(s.Total)},
		{},
		{"Member", "Balance"},
	}
	for _, b := range s.Balances {
		rows = append(rows, []interface{}{names.Of(b.ParticipantID), money(b.Amount)})
	}

	rows = append(rows, []interface{}{}, []interface{}{"From", "To", "Amount"})
	if len(s.Transfers) == 0 {
		rows = append(rows, []interface{}{"All settled"})
	}
	for _, t := range s.Transfers {
		rows = append(rows, []interface{}{names.Of(t.From), names.Of(t.To), money(t.Amount)})
	}
	return rows
}
