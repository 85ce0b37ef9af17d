package http

import (
	"net/http"

	"wisesplit/internal/log"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.expenses.CreateGroup(r.Context(), req.Name, req.Creator.toCore())
	if err != nil {
		writeError(w, r, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/groups/"+g.ID).
		Body(groupFromCore(g)).
		Write(w)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.expenses.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupFromCore(g))
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req memberJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.expenses.JoinGroup(r.Context(), id, req.toCore()); err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Member added over HTTP",
		log.FieldGroupID, id, "participant_id", req.ID)
	s.writeMembers(w, r, id, http.StatusCreated)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeMembers(w, r, id, http.StatusOK)
}

func (s *Server) writeMembers(w http.ResponseWriter, r *http.Request, groupID string, status int) {
	members, err := s.expenses.ListMembers(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]memberJSON, len(members))
	for i, m := range members {
		out[i] = memberFromCore(m)
	}
	writeJSON(w, status, map[string]any{"group_id": groupID, "members": out})
}
