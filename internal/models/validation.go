package models

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects field-level problems found while validating a value.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// AddMessage records a problem for field.
func (v *ValidationErrors) AddMessage(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// Empty reports whether no problems were recorded.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Errors) == 0
}

// Fields returns the recorded problems keyed by field. The first message wins.
func (v *ValidationErrors) Fields() map[string]string {
	out := make(map[string]string)
	if v == nil {
		return out
	}
	for _, e := range v.Errors {
		if _, exists := out[e.Field]; !exists {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Err returns nil when no problems were recorded.
func (v *ValidationErrors) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.Error())
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}
