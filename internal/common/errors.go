package common

import (
	"errors"
	"fmt"
)

// Callers match these with errors.Is; the HTTP layer maps each one to a status.
var (
	// ErrValidation marks client-correctable input problems.
	ErrValidation = errors.New("validation error")

	// ErrAccessDenied is returned for a wrong secret. It carries no detail.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned for unknown file ids.
	ErrNotFound = errors.New("not found")

	// ErrStorage wraps metadata or blob I/O failures.
	ErrStorage = errors.New("storage failure")

	// ErrCancelled is returned when the caller went away or the deadline passed.
	ErrCancelled = errors.New("request cancelled")

	// ErrTooLarge is the cause of a ValidationError for oversized uploads.
	ErrTooLarge = errors.New("file too large")
)

// ValidationError describes which upload attribute was rejected.
type ValidationError struct {
	Field  string
	Reason string
	// Cause optionally narrows the failure, e.g. ErrTooLarge.
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation and the optional Cause.
func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrValidation, e.Cause}
	}
	return []error{ErrValidation}
}

// NewValidationError is a shorthand constructor.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
