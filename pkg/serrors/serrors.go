package serrors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BaseError is a coded error with an optional field key. Validation
// failures carry the name of the offending request field so callers can
// surface them against the right input.
type BaseError struct {
	Code    string
	Message string
	Field   string
}

func NewError(code, message, field string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func (e *BaseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

// Validation builds a field-keyed validation error.
func Validation(field, message string) *BaseError {
	return NewError("VALIDATION_ERROR", message, field)
}

// ValidationErrors maps field names to their errors.
type ValidationErrors map[string]*BaseError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, err := range v {
		parts = append(parts, field+": "+err.Message)
	}
	return strings.Join(parts, "; ")
}

// FromValidator converts go-playground validator errors into field-keyed
// validation errors, using the struct's json-style snake field names.
func FromValidator(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		field := toSnake(fe.Field())
		out[field] = Validation(field, "failed on "+fe.Tag())
	}
	return out
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
