package model

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateConfigEntry checks a ConfigEntry definition before it is seeded.
// It returns a *ValidationError if any rules fail, or nil if the entry is valid.
func ValidateConfigEntry(e *ConfigEntry) error {
	var ve ValidationError

	if strings.TrimSpace(e.Key) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "key", Message: "is required"})
	}

	if !e.Type.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "type",
			Message: fmt.Sprintf("invalid value %q", e.Type),
		})
	}

	if strings.TrimSpace(e.Category) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "category", Message: "is required"})
	}

	// Bounds only make sense on numeric types.
	if (e.Min != nil || e.Max != nil) && e.Type.IsValid() && !e.Type.IsNumeric() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "min",
			Message: fmt.Sprintf("bounds are not allowed on %s values", e.Type),
		})
	}
	if e.Min != nil && e.Max != nil && *e.Min > *e.Max {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "max",
			Message: fmt.Sprintf("must be >= min (%v > %v)", *e.Min, *e.Max),
		})
	}

	patternOK := true
	if e.Pattern != "" {
		if _, err := regexp.Compile(e.Pattern); err != nil {
			patternOK = false
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "validation_pattern",
				Message: fmt.Sprintf("does not compile: %v", err),
			})
		}
	}

	// The seeded value must already satisfy the entry's own constraints.
	if e.Type.IsValid() && patternOK && !ve.HasErrors() {
		canonical, err := Canonicalize(e, e.Value)
		if err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: "value", Message: err.Error()})
		} else {
			e.Value = canonical
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
