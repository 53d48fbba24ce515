// Package apperr defines the error kinds surfaced to callers of the core
// services. Every error returned by the services wraps exactly one of the
// sentinels below, so callers branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated covers missing, invalid or expired tokens, unknown users and bad credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a role, ownership or protected-entity check fails.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on unique-constraint violations.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when an id does not resolve or is filtered out by ownership rules.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid input")
)

// Error pairs a sentinel kind with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}

func Forbidden(format string, args ...any) error { return newf(ErrForbidden, format, args...) }

func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

func Invalid(format string, args ...any) error { return newf(ErrInvalid, format, args...) }

// HTTPStatus maps err to the response status used by the HTTP layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing text for err. Errors outside the taxonomy
// are reported generically so storage details do not leak.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Error()
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
