package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonathan/pressroom/internal/db"
	"github.com/jonathan/pressroom/internal/types"
)

// handleRegister creates a user account and returns it with a token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ValidationError{Message: err.Error()})
		return
	}

	hash, err := s.deps.Passwords.HashPassword(req.Password)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	user, err := s.deps.Store.CreateUser(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			s.errorResponse(w, &ConflictError{Message: "email already registered"})
			return
		}
		s.errorResponse(w, err)
		return
	}

	token, err := s.deps.JWT.Generate(user.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	s.jsonResponse(w, http.StatusCreated, types.LoginResponse{User: user.ToUser(), Token: token})
}

// handleLogin authenticates by email and password. Unknown emails and wrong
// passwords are indistinguishable in the response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ValidationError{Message: err.Error()})
		return
	}

	user, err := s.deps.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if user == nil || !s.deps.Passwords.VerifyPassword(req.Password, user.PasswordHash) {
		s.errorResponse(w, &UnauthorizedError{Message: "invalid email or password"})
		return
	}

	token, err := s.deps.JWT.Generate(user.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.LoginResponse{User: user.ToUser(), Token: token})
}
