// Package apperrors defines the error taxonomy shared by the HTTP
// handlers and the realtime gateway. Services wrap these sentinels with
// fmt.Errorf("...: %w", ...) and callers classify with errors.Is.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized covers missing, invalid or expired credentials
	// and ephemeral tokens that are absent or used up.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden covers an authenticated principal lacking the
	// required permission bit, or acting on a protected entity such as
	// the guild owner or a managed role.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate active memberships and invite-code
	// collisions that exhaust the regeneration retries.
	ErrConflict = errors.New("conflict")

	// ErrServiceUnavailable means the backing ephemeral cache is
	// unreachable, as opposed to a token that simply does not exist.
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrBadRequest = errors.New("bad request")
)

// HTTPStatus maps an error to its HTTP status code. Unrecognized
// errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
