package contract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Source when no contract exists for a key.
var ErrNotFound = errors.New("contract not found")

// ValidationError describes one payload field that broke its contract.
type ValidationError struct {
	Contract      string   `json:"contract"`
	Field         string   `json:"field,omitempty"`
	Message       string   `json:"message"`
	Expected      string   `json:"expected,omitempty"`
	Actual        string   `json:"actual,omitempty"`
	UnknownFields []string `json:"unknownFields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.UnknownFields) > 0 {
		return fmt.Sprintf("unknown field(s) %v not allowed by %s", e.UnknownFields, e.Contract)
	}
	if e.Field != "" {
		return fmt.Sprintf("field '%s': %s (%s)", e.Field, e.Message, e.Contract)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Contract)
}

// Details returns the structured fields for API error responses.
func (e *ValidationError) Details() map[string]interface{} {
	d := make(map[string]interface{})
	if len(e.UnknownFields) > 0 {
		d["unknownFields"] = e.UnknownFields
	}
	if e.Field != "" {
		d["field"] = e.Field
	}
	return d
}

// MultiValidationError aggregates every field failure of one payload.
type MultiValidationError struct {
	Errors []*ValidationError
}

func (e *MultiValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Details lists the failed field names.
func (e *MultiValidationError) Details() map[string]interface{} {
	d := make(map[string]interface{})
	var fields []string
	for _, ve := range e.Errors {
		if ve.Field != "" {
			fields = append(fields, ve.Field)
		}
	}
	if len(fields) > 0 {
		d["fields"] = fields
	}
	return d
}

func typeMismatch(key Key, field, expected string, value interface{}) *ValidationError {
	actual := jsonTypeName(value)
	return &ValidationError{
		Contract: key.String(),
		Field:    field,
		Message:  fmt.Sprintf("expected %s, got %s", expected, actual),
		Expected: expected,
		Actual:   actual,
	}
}

func fieldError(key Key, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Contract: key.String(),
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

func jsonTypeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case bool:
		return "bool"
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// toFloat accepts the numeric kinds produced by encoding/json and by
// payload maps built directly in Go.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
