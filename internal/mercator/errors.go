package mercator

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidQuadKey = fmt.Errorf("invalid quadkey digit sequence: %w", ErrInvalidInput)
)

// ValidationError describes a value that violates a coordinate constraint.
type ValidationError struct {
	Field      string // Field that failed validation, e.g. "lat"
	Value      any    // The invalid value
	Constraint string // The violated constraint, e.g. "[-90,90]"
	Message    string // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (value: %v)", e.Message, e.Value)
}

// Unwrap returns ErrInvalidInput so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func newValidationError(field string, value any, constraint, message string) *ValidationError {
	return &ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
		Message:    message,
	}
}
