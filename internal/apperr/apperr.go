// Package apperr holds the error taxonomy shared by the HTTP services and
// the client library.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized means no identity could be resolved for the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is known but lacks edit rights.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the tablet or user resolved to nothing.
	ErrNotFound = errors.New("not found")
)

// Status maps a domain error to its HTTP status code. Anything outside the
// taxonomy is a 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
