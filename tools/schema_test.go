package tools

import (
	"testing"

	"github.com/kindredcare/kindred/models"
)

func observationSchema() models.Schema {
	return models.Schema{
		Type: "object",
		Properties: map[string]models.Property{
			"child_id": {Type: "string"},
			"note":     {Type: "string"},
			"category": {Type: "string", Enum: []string{"sleep", "behavior"}},
			"limit":    {Type: "integer"},
			"flag":     {Type: "boolean"},
		},
		Required: []string{"child_id", "note"},
	}
}

func TestValidateInput_Valid(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": "c1",
		"note":     "slept through the night",
		"category": "sleep",
		"limit":    float64(5),
		"flag":     true,
	})
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %v", violations)
	}
}

func TestValidateInput_MissingRequired(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": "c1",
	})
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %v", violations)
	}
}

func TestValidateInput_WrongTypes(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": 7.0,
		"note":     "ok",
		"limit":    2.5,
		"flag":     "yes",
	})
	if len(violations) != 3 {
		t.Errorf("Expected 3 violations, got %v", violations)
	}
}

func TestValidateInput_EnumViolation(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": "c1",
		"note":     "ok",
		"category": "weather",
	})
	if len(violations) != 1 {
		t.Errorf("Expected 1 violation, got %v", violations)
	}
}

func TestValidateInput_UnknownField(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": "c1",
		"note":     "ok",
		"extra":    "field",
	})
	if len(violations) != 1 {
		t.Errorf("Expected 1 violation for unknown field, got %v", violations)
	}
}

func TestValidateInput_WholeValuedFloatIsInteger(t *testing.T) {
	violations := ValidateInput(observationSchema(), map[string]any{
		"child_id": "c1",
		"note":     "ok",
		"limit":    float64(10),
	})
	if len(violations) != 0 {
		t.Errorf("JSON integers arrive as float64 and must validate, got %v", violations)
	}
}
