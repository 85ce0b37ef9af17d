package http

import (
	"net/http"
)

// handleSettlement returns every member's balance and the transfers that
// clear them. An unbalanced ledger answers 409.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	settlement, err := s.settlements.Settle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := s.expenses.ListMembers(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settlementFromCore(settlement, members))
}
