package schema

import (
	"errors"
	"strings"
)

// ErrSchemaValidation matches every *ValidationError.
var ErrSchemaValidation = errors.New("schema: invalid arguments")

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Problem string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Problem
	}
	return strings.Join(parts, "; ")
}

// Is reports whether target is ErrSchemaValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}
