package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the core services. Handlers translate
// these into HTTP status codes and short user-facing messages.
var (
	// ErrNotFound means the referenced user or match does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict means a transition was attempted against the
	// wrong current state (e.g. resolving a completed match). The
	// operation is a no-op and must not be retried automatically.
	ErrStateConflict = errors.New("state conflict")

	// ErrInsufficientFunds means a balance check failed before any
	// debit was attempted.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ValidationError rejects malformed or unauthorized input before any
// state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
