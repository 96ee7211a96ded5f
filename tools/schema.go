package tools

import (
	"fmt"

	"github.com/kindredcare/kindred/models"
)

// ValidateInput checks raw model-provided input against a tool's declared
// schema and returns the list of violations (empty when valid). Validation
// covers required fields, property types, and enum membership, which is
// what the tool schemas here actually declare.
func ValidateInput(schema models.Schema, input map[string]any) []string {
	var violations []string

	for _, req := range schema.Required {
		if _, ok := input[req]; !ok {
			violations = append(violations, fmt.Sprintf("missing required field '%s'", req))
		}
	}

	for key, value := range input {
		prop, ok := schema.Properties[key]
		if !ok {
			violations = append(violations, fmt.Sprintf("unknown field '%s'", key))
			continue
		}
		if value == nil {
			continue
		}
		if msg := checkType(key, prop, value); msg != "" {
			violations = append(violations, msg)
		}
	}

	return violations
}

func checkType(key string, prop models.Property, value any) string {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("field '%s' must be a string, got %T", key, value)
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			return fmt.Sprintf("field '%s' must be one of %v, got '%s'", key, prop.Enum, s)
		}
	case "integer":
		// JSON numbers arrive as float64; accept whole-valued floats.
		switch n := value.(type) {
		case float64:
			if n != float64(int64(n)) {
				return fmt.Sprintf("field '%s' must be an integer, got %v", key, n)
			}
		case int, int64:
		default:
			return fmt.Sprintf("field '%s' must be an integer, got %T", key, value)
		}
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Sprintf("field '%s' must be a number, got %T", key, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("field '%s' must be a boolean, got %T", key, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Sprintf("field '%s' must be an object, got %T", key, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Sprintf("field '%s' must be an array, got %T", key, value)
		}
	}
	return ""
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
