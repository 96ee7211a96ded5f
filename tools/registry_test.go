package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kindredcare/kindred/models"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its input",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{
			Type: "object",
			Properties: map[string]models.Property{
				"value": {Type: "string"},
			},
			Required: []string{"value"},
		},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			return input["value"], nil
		},
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}
	if err := r.Register(echoTool("echo")); err == nil {
		t.Error("Expected error registering duplicate tool name")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 registered tool, got %d", r.Len())
	}
}

func TestRegistry_DefinitionsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("bravo"), echoTool("alpha"), echoTool("charlie"))

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("Expected 3 definitions, got %d", len(defs))
	}
	want := []string{"bravo", "alpha", "charlie"}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("Definition %d: expected %s, got %s", i, name, defs[i].Name)
		}
	}
}

func TestDispatch_ToolNotFound(t *testing.T) {
	e := NewRegistry().Executor(ToolContext{UserID: "u1"})
	result := e.Dispatch(context.Background(), "missing", map[string]any{})
	if result.Success {
		t.Error("Expected failure for unknown tool")
	}
	if result.Error == "" {
		t.Error("Expected error message for unknown tool")
	}
}

func TestDispatch_InvalidInput(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("echo"))
	e := r.Executor(ToolContext{UserID: "u1"})

	result := e.Dispatch(context.Background(), "echo", map[string]any{})
	if result.Success {
		t.Error("Expected failure for missing required field")
	}

	result = e.Dispatch(context.Background(), "echo", map[string]any{"value": 42.0})
	if result.Success {
		t.Error("Expected failure for wrong field type")
	}
}

func TestDispatch_Success(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("echo"))
	e := r.Executor(ToolContext{UserID: "u1"})

	result := e.Dispatch(context.Background(), "echo", map[string]any{"value": "hi"})
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if result.Data != "hi" {
		t.Errorf("Expected echoed data 'hi', got %v", result.Data)
	}
}

func TestDispatch_ToolErrorBecomesResult(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Tool{
		Name:        "denied",
		Description: "always denies",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{Type: "object"},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			return nil, errors.New("unauthorized: user u1 is not authorized for child c1")
		},
	})
	e := r.Executor(ToolContext{UserID: "u1"})

	result := e.Dispatch(context.Background(), "denied", map[string]any{})
	if result.Success {
		t.Error("Expected failure result from denying tool")
	}
	if result.Error != "unauthorized: user u1 is not authorized for child c1" {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
}

func TestDispatch_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Tool{
		Name:        "boom",
		Description: "panics",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{Type: "object"},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			panic("kaboom")
		},
	})
	e := r.Executor(ToolContext{UserID: "u1"})

	result := e.Dispatch(context.Background(), "boom", map[string]any{})
	if result.Success {
		t.Error("Expected failure result from panicking tool")
	}
}

func TestDispatch_HungToolDegradesToError(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Tool{
		Name:        "sleeper",
		Description: "ignores its context and sleeps",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{Type: "object"},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			time.Sleep(300 * time.Millisecond)
			return "finally", nil
		},
	})
	e := r.Executor(ToolContext{UserID: "u1"}).WithTimeout(10 * time.Millisecond)

	start := time.Now()
	result := e.Dispatch(context.Background(), "sleeper", map[string]any{})
	elapsed := time.Since(start)

	if result.Success {
		t.Errorf("Expected timeout failure, got success: %v", result.Data)
	}
	if result.Error == "" || !strings.Contains(result.Error, "did not finish") {
		t.Errorf("Expected timeout error message, got %q", result.Error)
	}
	if elapsed > 250*time.Millisecond {
		t.Errorf("Dispatch blocked %v despite a 10ms timeout", elapsed)
	}
}

func TestDispatch_ContextCarriesDeadline(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Tool{
		Name:        "deadline",
		Description: "reports whether a deadline was set",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{Type: "object"},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			_, ok := ctx.Deadline()
			return ok, nil
		},
	})
	e := r.Executor(ToolContext{UserID: "u1"}).WithTimeout(50 * time.Millisecond)

	result := e.Dispatch(context.Background(), "deadline", map[string]any{})
	if !result.Success {
		t.Fatalf("Dispatch failed: %s", result.Error)
	}
	if result.Data != true {
		t.Error("Expected dispatch context to carry a deadline")
	}
}

func TestExecutor_ContextIsImmutable(t *testing.T) {
	r := NewRegistry()
	e := r.Executor(ToolContext{UserID: "u1", ConversationID: "conv1"})

	tc := e.Context()
	tc.UserID = "intruder"

	if e.Context().UserID != "u1" {
		t.Error("Executor ToolContext must not be mutable through Context()")
	}
}
