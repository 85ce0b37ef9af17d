package http

import (
	"net/http"

	"wisesplit/internal/core"
	"wisesplit/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := req.mode()
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Total()
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	payer := core.ParticipantID(req.PayerID)
	var saved core.Expense

	switch mode {
	case "split_between":
		saved, err = s.expenses.CreateEqualExpense(ctx, id, payer, req.Description, amount, req.participants())
	case "weights":
		var weights []core.Weight
		if weights, err = req.coreWeights(); err == nil {
			saved, err = s.expenses.CreateWeightedExpense(ctx, id, payer, req.Description, amount, weights)
		}
	default:
		var splits []core.Split
		if splits, err = req.coreSplits(); err == nil {
			saved, err = s.expenses.CreateExpense(ctx, core.Expense{
				GroupID:     id,
				PayerID:     payer,
				Description: req.Description,
				Amount:      amount,
				Splits:      splits,
			})
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense created",
		log.NewFields().
			WithExpense(saved.GroupID, saved.ID, int64(saved.PayerID), money(saved.Amount), len(saved.Splits)).
			WithOperation(log.OpCreate).
			ToSlice()...)

	writeJSON(w, http.StatusCreated, expenseFromCore(saved))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.expenses.ListExpenses(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = expenseFromCore(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"group_id": id, "expenses": out})
}
