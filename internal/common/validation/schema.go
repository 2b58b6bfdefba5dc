package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// JSONSchema defines the structure of an object document.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type             string              `json:"type"`
	Description      string              `json:"description,omitempty"`
	Const            *string             `json:"const,omitempty"`
	Minimum          *float64            `json:"minimum,omitempty"`
	Maximum          *float64            `json:"maximum,omitempty"`
	ExclusiveMinimum *float64            `json:"exclusiveMinimum,omitempty"`
	Enum             []string            `json:"enum,omitempty"`
	Pattern          *string             `json:"pattern,omitempty"`
	MinLength        *int                `json:"minLength,omitempty"`
	MaxLength        *int                `json:"maxLength,omitempty"`
	MinItems         *int                `json:"minItems,omitempty"`
	MaxItems         *int                `json:"maxItems,omitempty"`
	Items            *Property           `json:"items,omitempty"`      // For array validation
	Properties       map[string]Property `json:"properties,omitempty"` // For nested objects
	Required         []string            `json:"required,omitempty"`   // For nested objects
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Float, Int and String return pointers for schema literals.
func Float(v float64) *float64 { return &v }
func Int(v int) *int { return &v }
func String(v string) *string { return &v }

// ValidateInput validates input against schema. Errors come out in a stable
// order: missing required fields in declared order, then declared properties
// by name, then undeclared fields by name. Errors[0] is the first violation.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	errors := validateObject("", input, schema.Properties, schema.Required, schema.AdditionalProperties)
	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateObject(prefix string, input map[string]interface{}, props map[string]Property, required []string, additional bool) []ValidationError {
	errors := []ValidationError{}

	for _, requiredField := range required {
		if v, exists := input[requiredField]; !exists || v == nil {
			errors = append(errors, ValidationError{
				Field:   join(prefix, requiredField),
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for _, fieldName := range sortedKeys(props) {
		value, exists := input[fieldName]
		if !exists || value == nil {
			continue
		}
		errors = append(errors, validateField(join(prefix, fieldName), value, props[fieldName])...)
	}

	if !additional {
		extra := []string{}
		for fieldName := range input {
			if _, declared := props[fieldName]; !declared {
				extra = append(extra, fieldName)
			}
		}
		sort.Strings(extra)
		for _, fieldName := range extra {
			errors = append(errors, ValidationError{
				Field:   join(prefix, fieldName),
				Message: "field not allowed in schema",
				Code:    "EXTRA_FIELD",
			})
		}
	}
	return errors
}

func validateField(fieldName string, value interface{}, prop Property) []ValidationError {
	errors := []ValidationError{}

	if typeErr := validateType(value, prop.Type); typeErr != nil {
		return append(errors, ValidationError{
			Field:   fieldName,
			Message: typeErr.Error(),
			Code:    "INVALID_TYPE",
		})
	}

	if strVal, ok := value.(string); ok {
		if prop.Const != nil && strVal != *prop.Const {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be %q", *prop.Const),
				Code:    "CONST_MISMATCH",
			})
		}
		if prop.MinLength != nil && len(strings.TrimSpace(strVal)) < *prop.MinLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    "MIN_LENGTH_VIOLATION",
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}
		if prop.Pattern != nil {
			matched, err := regexp.MatchString(*prop.Pattern, strVal)
			if err != nil || !matched {
				errors = append(errors, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
					Code:    "PATTERN_MISMATCH",
				})
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, strVal) {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if numVal, ok := ToFloat(value); ok && (prop.Type == "number" || prop.Type == "integer") {
		if prop.Minimum != nil && numVal < *prop.Minimum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be >= %s", formatNumber(*prop.Minimum)),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.ExclusiveMinimum != nil && numVal <= *prop.ExclusiveMinimum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be > %s", formatNumber(*prop.ExclusiveMinimum)),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && numVal > *prop.Maximum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be <= %s", formatNumber(*prop.Maximum)),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	if arrVal, ok := value.([]interface{}); ok {
		if prop.MinItems != nil && len(arrVal) < *prop.MinItems {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("must contain at least %d items", *prop.MinItems),
				Code:    "MIN_ITEMS_VIOLATION",
			})
		}
		if prop.MaxItems != nil && len(arrVal) > *prop.MaxItems {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("must contain at most %d items", *prop.MaxItems),
				Code:    "MAX_ITEMS_VIOLATION",
			})
		}
		if prop.Items != nil {
			for i, item := range arrVal {
				errors = append(errors, validateField(fmt.Sprintf("%s[%d]", fieldName, i), item, *prop.Items)...)
			}
		}
	}

	// Nested objects allow additional properties.
	if objVal, ok := value.(map[string]interface{}); ok && (prop.Properties != nil || prop.Required != nil) {
		errors = append(errors, validateObject(fieldName, objVal, prop.Properties, prop.Required, true)...)
	}

	return errors
}

func validateType(value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %s", TypeName(value))
		}
	case "number":
		if _, ok := ToFloat(value); !ok {
			return fmt.Errorf("expected number, got %s", TypeName(value))
		}
	case "integer":
		if !IsInteger(value) {
			return fmt.Errorf("expected integer, got %s", TypeName(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %s", TypeName(value))
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %s", TypeName(value))
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %s", TypeName(value))
		}
	case "null":
		if value != nil {
			return fmt.Errorf("expected null, got %s", TypeName(value))
		}
	}
	return nil
}

// ToFloat converts decoded JSON numbers and Go integer kinds to float64.
func ToFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsInteger accepts Go integer kinds and integral float64 values, which is
// how encoding/json decodes every number.
func IsInteger(value interface{}) bool {
	switch n := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

// TypeName names the JSON type of a decoded value.
func TypeName(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func join(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func sortedKeys(m map[string]Property) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// GetSchemaFromJSON parses JSON schema from string
func GetSchemaFromJSON(schemaJSON string) (JSONSchema, error) {
	var schema JSONSchema
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and everything nested under it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// First returns the first violation, or nil when valid.
func (vr *ValidationResult) First() *ValidationError {
	if len(vr.Errors) == 0 {
		return nil
	}
	return &vr.Errors[0]
}
