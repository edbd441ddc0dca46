package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two validation failure classes. Callers match with
// errors.Is after a failed construction.
var (
	ErrMissingField = errors.New("missing required field")
	ErrTypeMismatch = errors.New("type mismatch")
)

// ValidationError reports why a value could not be constructed. It wraps one
// of the sentinel errors above and names the offending field.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", e.kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func newMissingField(field string) error {
	return &ValidationError{Field: field, kind: ErrMissingField}
}

func newTypeMismatch(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrTypeMismatch}
}
