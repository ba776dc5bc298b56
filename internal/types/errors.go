package types

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks telemetry that could not be interpreted (NaN, bad number).
	ErrParse = errors.New("parse error")
	// ErrMissingField marks a record lacking a field every consumer relies on.
	ErrMissingField = errors.New("missing required field")
)

// ValidationError describes a malformed reading or record. Records failing
// validation are dropped at the normalizer boundary.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("validation: %s: %v: %s", e.Field, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
