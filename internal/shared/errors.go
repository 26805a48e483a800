package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Domain sentinels wrap one of these so transports can map them.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnprocessable indicates well-formed input that references missing data.
	ErrUnprocessable = errors.New("unprocessable")
	// ErrForbidden indicates the caller lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError names the input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Unwrap exposes the validation kind.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// FieldName returns the offending field.
func (e *ValidationError) FieldName() string {
	return e.Field
}

// IsClientError reports whether err is one of the caller-facing kinds rather
// than an infrastructure fault.
func IsClientError(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnprocessable, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
