// Package validation collects field-level input errors before anything is
// persisted.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Fields extracts the field errors from err, or nil.
func Fields(err error) []FieldError {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// Collector accumulates failures; Err returns nil when nothing failed.
type Collector struct {
	fields []FieldError
}

func (c *Collector) Add(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

func (c *Collector) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.Add(field, "is required")
	}
}

// MinLength counts runes, not bytes.
func (c *Collector) MinLength(field, value string, min int) {
	if utf8.RuneCountInString(value) < min {
		c.Add(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

func (c *Collector) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.Add(field, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

// Nest merges another collector's failures under a prefix such as "medications[0]".
func (c *Collector) Nest(prefix string, other *Collector) {
	for _, f := range other.fields {
		c.Add(prefix+"."+f.Field, f.Message)
	}
}

func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}
