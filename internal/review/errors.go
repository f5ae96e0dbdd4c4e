package review

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a review or thread id is unknown.
var ErrNotFound = errors.New("not found")

// ValidationError describes malformed input (empty body, inverted or
// non-positive line range, unknown decision). It maps to HTTP 400 at
// the API boundary and is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
