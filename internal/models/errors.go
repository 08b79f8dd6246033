package models

import (
	"strings"
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request is malformed. It is always
// raised before any side effect takes place.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError returns nil when there is nothing to report so callers
// can write `if err := NewValidationError(errs); err != nil`.
func NewValidationError(fields []FieldError) *ValidationError {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
