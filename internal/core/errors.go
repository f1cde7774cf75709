package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Handlers translate these to HTTP
// statuses; nothing below the HTTP layer knows about status codes.
var (
	// ErrNotFound covers both a missing entity and an entity owned by a
	// different user. The two cases are deliberately indistinguishable so
	// responses never leak the existence of other users' data.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals a uniqueness violation, e.g. a second budget for
	// the same user and month.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated signals a request without a verified identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrDependency signals a failure of the entity store or an external
	// collaborator. The underlying cause is logged, never surfaced.
	ErrDependency = errors.New("dependency failure")

	ErrInvalidAmount = errors.New("invalid amount")
)

// ValidationError reports a missing or malformed input field. It is raised
// before any mutation, so a validation failure never leaves partial state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Invalidf builds a ValidationError for the given field.
func Invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
