package validator

import (
	"fmt"
	"strings"
)

// ValidationError represents a single failed rule.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors represents a collection of validation errors.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether any error concerns the given field.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Rule is a deferred validation check. Rules report zero or more errors.
type Rule func() []ValidationError

// Apply runs all rules and returns the collected errors, or nil when every
// rule passes. The returned error is always a ValidationErrors value.
func Apply(rules ...Rule) error {
	var all ValidationErrors
	for _, rule := range rules {
		all = append(all, rule()...)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

func fail(field, message string) []ValidationError {
	return []ValidationError{{Field: field, Message: message}}
}
