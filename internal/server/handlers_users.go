package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/pressroom/internal/types"
)

// handleMe returns the authenticated user's profile and balance.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	user, err := s.deps.Store.GetUser(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if user == nil {
		s.errorResponse(w, &NotFoundError{Resource: "user"})
		return
	}
	s.jsonResponse(w, http.StatusOK, user.ToUser())
}

// handleCredit tops up the authenticated user's token balance.
func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	var req types.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ValidationError{Message: err.Error()})
		return
	}

	balance, err := s.deps.Ledger.Credit(r.Context(), userID, req.Amount)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int64{"balance": balance})
}
