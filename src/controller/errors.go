package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers entities that are absent or not owned by the
	// calling user; the two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an operation is illegal for
	// the order's current status. Filled and cancelled are terminal.
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// ValidationError reports malformed caller input. It is always raised
// before any broker call, so it is side-effect free.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
