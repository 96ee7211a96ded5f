package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kindredcare/kindred/models"
)

// Kind partitions tools into read-only and mutating classes. Read-only tools
// must not mutate state; this is registration discipline, not a sandbox.
type Kind string

const (
	KindReadOnly Kind = "read_only"
	KindMutating Kind = "mutating"
)

// ToolContext is the authorization envelope passed to every tool call.
// It is immutable for the lifetime of an executor.
type ToolContext struct {
	UserID         string
	ConversationID string
	ChildID        string
	FamilyID       string
}

// Tool is a named, schema-validated capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema models.Schema
	Kind        Kind
	Execute     func(ctx context.Context, input map[string]any, tc ToolContext) (any, error)
}

// Result is the structured outcome of one dispatch. A failed tool never
// aborts the conversation loop; it surfaces here instead.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// DefaultDispatchTimeout bounds a single tool execution. A hung tool
// degrades to a tool error instead of blocking the loop.
const DefaultDispatchTimeout = 30 * time.Second

// Registry is a name-keyed set of tools with enforced-unique registration.
// Construct one per process and thread it through explicitly.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. It fails if the name is empty or already present.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool '%s' has no execute function", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool '%s' is already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers a batch of tools, panicking on the first failure.
// Intended for process startup.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic("tool registration failed: " + err.Error())
		}
	}
}

// Definitions returns the model-facing declaration for every registered
// tool, in registration order.
func (r *Registry) Definitions() []models.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]models.ToolDeclaration, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, models.ToolDeclaration{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return defs
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Executor returns a dispatcher closed over an immutable ToolContext.
func (r *Registry) Executor(tc ToolContext) *Executor {
	return &Executor{
		registry: r,
		tctx:     tc,
		timeout:  DefaultDispatchTimeout,
	}
}

// Executor dispatches tool calls under one ToolContext.
type Executor struct {
	registry *Registry
	tctx     ToolContext
	timeout  time.Duration
}

// WithTimeout overrides the per-dispatch bound.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Context returns a copy of the executor's ToolContext.
func (e *Executor) Context() ToolContext {
	return e.tctx
}

type dispatchOutcome struct {
	data any
	err  error
}

// Dispatch looks a tool up, validates its input against the declared schema,
// and invokes it. Every failure mode (unknown tool, invalid input, timeout,
// an error or panic from the tool itself, including authorization denial)
// comes back as an unsuccessful Result; Dispatch never lets a single tool
// failure escape as an error.
//
// The tool runs in its own goroutine so the timeout holds even when a tool
// ignores its context: Dispatch returns a timeout failure at the deadline
// and the invocation is left to finish in the background.
func (e *Executor) Dispatch(ctx context.Context, name string, input map[string]any) Result {
	e.registry.mu.RLock()
	tool, ok := e.registry.tools[name]
	e.registry.mu.RUnlock()
	if !ok {
		return failure("unknown or unavailable tool: %s", name)
	}

	if violations := ValidateInput(tool.InputSchema, input); len(violations) > 0 {
		return failure("invalid input for tool '%s': %s", name, strings.Join(violations, "; "))
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Buffered so an abandoned invocation can still deliver and exit.
	outcome := make(chan dispatchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- dispatchOutcome{err: fmt.Errorf("tool '%s' panicked: %v", name, r)}
			}
		}()
		data, err := tool.Execute(callCtx, input, e.tctx)
		outcome <- dispatchOutcome{data: data, err: err}
	}()

	select {
	case o := <-outcome:
		if o.err != nil {
			return failure("%s", o.err.Error())
		}
		return Result{Success: true, Data: o.data}
	case <-callCtx.Done():
		return failure("tool '%s' did not finish: %v", name, callCtx.Err())
	}
}
