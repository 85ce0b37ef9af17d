package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
	"wisesplit/internal/sheets"
)

// Wire shapes of the JSON API. Amounts go out as fixed two-decimal strings.

type memberJSON struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Username  string    `json:"username,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (m memberJSON) toCore() core.Member {
	return core.Member{ID: core.ParticipantID(m.ID), FirstName: m.FirstName, Username: m.Username}
}

func memberFromCore(m core.Member) memberJSON {
	return memberJSON{ID: int64(m.ID), FirstName: m.FirstName, Username: m.Username, JoinedAt: m.JoinedAt}
}

type groupJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func groupFromCore(g core.Group) groupJSON {
	return groupJSON{ID: g.ID, Name: g.Name, CreatedBy: int64(g.CreatedBy), CreatedAt: g.CreatedAt}
}

type createGroupRequest struct {
	Name    string     `json:"name"`
	Creator memberJSON `json:"creator"`
}

type splitJSON struct {
	ParticipantID int64  `json:"participant_id"`
	Amount        Amount `json:"amount"`
	IsPaid        bool   `json:"is_paid"`
}

type weightJSON struct {
	ParticipantID int64  `json:"participant_id"`
	Weight        Amount `json:"weight"`
}

// createExpenseRequest carries exactly one of Splits, SplitBetween or
// Weights.
type createExpenseRequest struct {
	PayerID      int64        `json:"payer_id"`
	Description  string       `json:"description"`
	Amount       Amount       `json:"amount"`
	Splits       []splitJSON  `json:"splits,omitempty"`
	SplitBetween []int64      `json:"split_between,omitempty"`
	Weights      []weightJSON `json:"weights,omitempty"`
}

func (req createExpenseRequest) mode() (string, error) {
	modes := 0
	mode := ""
	if len(req.Splits) > 0 {
		modes++
		mode = "splits"
	}
	if len(req.SplitBetween) > 0 {
		modes++
		mode = "split_between"
	}
	if len(req.Weights) > 0 {
		modes++
		mode = "weights"
	}
	if modes != 1 {
		return "", fmt.Errorf("%w: exactly one of splits, split_between or weights is required", errBadRequest)
	}
	return mode, nil
}

func (req createExpenseRequest) coreSplits() ([]core.Split, error) {
	splits := make([]core.Split, len(req.Splits))
	for i, s := range req.Splits {
		amount, err := s.Amount.Share()
		if err != nil {
			return nil, err
		}
		splits[i] = core.Split{ParticipantID: core.ParticipantID(s.ParticipantID), Amount: amount, IsPaid: s.IsPaid}
	}
	return splits, nil
}

func (req createExpenseRequest) participants() []core.ParticipantID {
	ids := make([]core.ParticipantID, len(req.SplitBetween))
	for i, id := range req.SplitBetween {
		ids[i] = core.ParticipantID(id)
	}
	return ids
}

func (req createExpenseRequest) coreWeights() ([]core.Weight, error) {
	weights := make([]core.Weight, len(req.Weights))
	for i, w := range req.Weights {
		v, err := w.Weight.Weight()
		if err != nil {
			return nil, err
		}
		weights[i] = core.Weight{ParticipantID: core.ParticipantID(w.ParticipantID), Weight: v}
	}
	return weights, nil
}

type splitOut struct {
	ParticipantID int64  `json:"participant_id"`
	Amount        string `json:"amount"`
	IsPaid        bool   `json:"is_paid"`
}

type expenseJSON struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	PayerID     int64      `json:"payer_id"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	CreatedAt   time.Time  `json:"created_at"`
	Splits      []splitOut `json:"splits"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(core.Precision)
}

func expenseFromCore(e core.Expense) expenseJSON {
	splits := make([]splitOut, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = splitOut{ParticipantID: int64(s.ParticipantID), Amount: money(s.Amount), IsPaid: s.IsPaid}
	}
	return expenseJSON{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     int64(e.PayerID),
		Description: e.Description,
		Amount:      money(e.Amount),
		CreatedAt:   e.CreatedAt,
		Splits:      splits,
	}
}

type balanceJSON struct {
	ParticipantID int64  `json:"participant_id"`
	Name          string `json:"name"`
	Amount        string `json:"amount"`
}

type transferJSON struct {
	From     int64  `json:"from"`
	FromName string `json:"from_name"`
	To       int64  `json:"to"`
	ToName   string `json:"to_name"`
	Amount   string `json:"amount"`
}

type settlementJSON struct {
	GroupID      string         `json:"group_id"`
	ExpenseCount int            `json:"expense_count"`
	Total        string         `json:"total"`
	Settled      bool           `json:"settled"`
	Balances     []balanceJSON  `json:"balances"`
	Transfers    []transferJSON `json:"transfers"`
	ComputedAt   time.Time      `json:"computed_at"`
}

func settlementFromCore(s core.Settlement, members []core.Member) settlementJSON {
	names := sheets.DisplayNames(members)

	balances := make([]balanceJSON, len(s.Balances))
	for i, b := range s.Balances {
		balances[i] = balanceJSON{ParticipantID: int64(b.ParticipantID), Name: names.Of(b.ParticipantID), Amount: money(b.Amount)}
	}
	transfers := make([]transferJSON, len(s.Transfers))
	for i, t := range s.Transfers {
		transfers[i] = transferJSON{
			From:     int64(t.From),
			FromName: names.Of(t.From),
			To:       int64(t.To),
			ToName:   names.Of(t.To),
			Amount:   money(t.Amount),
		}
	}

	return settlementJSON{
		GroupID:      s.GroupID,
		ExpenseCount: s.ExpenseCount,
		Total:        money(s.Total),
		Settled:      len(s.Transfers) == 0,
		Balances:     balances,
		Transfers:    transfers,
		ComputedAt:   s.ComputedAt,
	}
}
