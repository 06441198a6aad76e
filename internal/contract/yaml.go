package contract

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxPatternLength = 1000

// yamlSpec is the parsed form of a YAML contract:
//
//	event: ATTEMPT_GRADED
//	version: 1
//	strict: false
//	fields:
//	  examId: string!
//	  score:
//	    type: double!
//	    min: 0
type yamlSpec struct {
	Event       string                `yaml:"event"`
	Version     int                   `yaml:"version"`
	Description string                `yaml:"description,omitempty"`
	Strict      bool                  `yaml:"strict,omitempty"`
	Fields      map[string]*yamlField `yaml:"fields"`
}

// yamlField accepts the shorthand "name: int32!" or the long form with
// constraints. A trailing "!" marks the field required.
type yamlField struct {
	Type      string        `yaml:"type"`
	Kind      string        `yaml:"-"`
	Required  bool          `yaml:"required,omitempty"`
	Enum      []interface{} `yaml:"enum,omitempty"`
	Min       *float64      `yaml:"min,omitempty"`
	Max       *float64      `yaml:"max,omitempty"`
	MinLength *int          `yaml:"minLength,omitempty"`
	MaxLength *int          `yaml:"maxLength,omitempty"`
	Pattern   string        `yaml:"pattern,omitempty"`

	pattern *regexp.Regexp
}

func (f *yamlField) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return f.parseType(value.Value)
	}

	type plain yamlField
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*f = yamlField(decoded)

	if f.Type == "" {
		return fmt.Errorf("field missing 'type'")
	}
	return f.parseType(f.Type)
}

func (f *yamlField) parseType(s string) error {
	if strings.HasSuffix(s, "!") {
		f.Required = true
		s = strings.TrimSuffix(s, "!")
	}

	switch s {
	case "string":
		f.Type = "string"
	case "bool":
		f.Type = "boolean"
	case "object":
		f.Type = "object"
	case "int32", "int64", "float", "double":
		f.Type = "number"
		f.Kind = s
	default:
		return fmt.Errorf("unsupported type %q (must be: string, bool, object, int32, int64, float, double)", s)
	}
	return nil
}

func (f *yamlField) check() error {
	switch f.Type {
	case "string":
		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			return fmt.Errorf("minLength (%d) cannot exceed maxLength (%d)", *f.MinLength, *f.MaxLength)
		}
		if (f.MinLength != nil && *f.MinLength < 0) || (f.MaxLength != nil && *f.MaxLength < 0) {
			return fmt.Errorf("length bounds cannot be negative")
		}
		if f.Pattern != "" {
			if len(f.Pattern) > maxPatternLength {
				return fmt.Errorf("pattern too long (max %d chars)", maxPatternLength)
			}
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("invalid regex pattern: %w", err)
			}
			f.pattern = re
		}
		for i, v := range f.Enum {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("enum[%d]: expected string, got %T", i, v)
			}
		}
	case "number":
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("min (%v) cannot exceed max (%v)", *f.Min, *f.Max)
		}
		if f.MinLength != nil || f.MaxLength != nil || f.Pattern != "" {
			return fmt.Errorf("number fields do not support length or pattern constraints")
		}
		for i, v := range f.Enum {
			if _, ok := toFloat(v); !ok {
				return fmt.Errorf("enum[%d]: expected number, got %T", i, v)
			}
		}
	case "boolean", "object":
		if f.MinLength != nil || f.MaxLength != nil || f.Pattern != "" || f.Min != nil || f.Max != nil || len(f.Enum) > 0 {
			return fmt.Errorf("%s fields do not support constraints", f.Type)
		}
	default:
		return fmt.Errorf("unsupported type %q", f.Type)
	}
	return nil
}

func compileYAML(c *Contract) (*compiled, error) {
	var spec yamlSpec
	if err := yaml.Unmarshal(c.Definition, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML contract: %w", err)
	}

	if spec.Event != string(c.Key.Type) {
		return nil, fmt.Errorf("contract event %q does not match %q", spec.Event, c.Key.Type)
	}
	if spec.Version != c.Key.Version {
		return nil, fmt.Errorf("contract version %d does not match v%d", spec.Version, c.Key.Version)
	}
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("contract must define at least one field")
	}
	for name, field := range spec.Fields {
		if field == nil {
			return nil, fmt.Errorf("field %q: type cannot be empty", name)
		}
		if err := field.check(); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}

	return &compiled{key: c.Key, format: FormatYAML, strict: spec.Strict, spec: &spec}, nil
}

func validateYAML(c *compiled, data map[string]interface{}) error {
	if c.strict {
		var unknown []string
		for name := range data {
			if _, ok := c.spec.Fields[name]; !ok {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			return &ValidationError{
				Contract:      c.key.String(),
				Message:       fmt.Sprintf("unknown field(s) not allowed: %v", unknown),
				UnknownFields: unknown,
			}
		}
	}

	var errs []*ValidationError
	for name, field := range c.spec.Fields {
		value, present := data[name]
		if !present || value == nil {
			if field.Required {
				errs = append(errs, fieldError(c.key, name, "required field is missing"))
			}
			continue
		}
		if err := checkYAMLValue(c.key, name, field, value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

func checkYAMLValue(key Key, name string, field *yamlField, value interface{}) *ValidationError {
	switch field.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return typeMismatch(key, name, "string", value)
		}
		if len(field.Enum) > 0 && !enumHasString(field.Enum, str) {
			return fieldError(key, name, "value %q not in enum %v", str, field.Enum)
		}
		if field.MinLength != nil && len(str) < *field.MinLength {
			return fieldError(key, name, "string length %d is less than minimum %d", len(str), *field.MinLength)
		}
		if field.MaxLength != nil && len(str) > *field.MaxLength {
			return fieldError(key, name, "string length %d exceeds maximum %d", len(str), *field.MaxLength)
		}
		if field.pattern != nil && !field.pattern.MatchString(str) {
			return fieldError(key, name, "string does not match pattern %q", field.Pattern)
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeMismatch(key, name, "boolean", value)
		}

	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return typeMismatch(key, name, "object", value)
		}

	case "number":
		num, ok := toFloat(value)
		if !ok {
			return typeMismatch(key, name, "number", value)
		}
		if err := checkNumberKind(key, name, field.Kind, num); err != nil {
			return err
		}
		if len(field.Enum) > 0 && !enumHasNumber(field.Enum, num) {
			return fieldError(key, name, "value %v not in enum %v", num, field.Enum)
		}
		if field.Min != nil && num < *field.Min {
			return fieldError(key, name, "value %v is less than minimum %v", num, *field.Min)
		}
		if field.Max != nil && num > *field.Max {
			return fieldError(key, name, "value %v exceeds maximum %v", num, *field.Max)
		}
	}
	return nil
}

func checkNumberKind(key Key, name, kind string, num float64) *ValidationError {
	switch kind {
	case "int32":
		if num != float64(int64(num)) {
			return fieldError(key, name, "expected integer, got float with fractional part")
		}
		if num < -2147483648 || num > 2147483647 {
			return fieldError(key, name, "value %v out of range for int32", num)
		}
	case "int64":
		if num != float64(int64(num)) {
			return fieldError(key, name, "expected integer, got float with fractional part")
		}
	case "float":
		if num < -3.4e38 || num > 3.4e38 {
			return fieldError(key, name, "value %v out of range for float32", num)
		}
	}
	return nil
}

func enumHasString(enum []interface{}, s string) bool {
	for _, v := range enum {
		if allowed, ok := v.(string); ok && allowed == s {
			return true
		}
	}
	return false
}

func enumHasNumber(enum []interface{}, n float64) bool {
	for _, v := range enum {
		if allowed, ok := toFloat(v); ok && allowed == n {
			return true
		}
	}
	return false
}
