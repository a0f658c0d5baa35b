package server

import (
	"errors"
	"net/http"
)

// ValidationError indicates a malformed or invalid request body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnauthorizedError indicates missing or invalid credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// NotFoundError indicates a missing resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConflictError indicates a uniqueness violation, e.g. a taken email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// HTTPStatus maps a typed error to its response status code. Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	var (
		validationErr   *ValidationError
		unauthorizedErr *UnauthorizedError
		notFoundErr     *NotFoundError
		conflictErr     *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &unauthorizedErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
