package sessions

import (
	"context"
	"log"
	"time"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// Model is the provider abstraction the loop driver consumes: one call
// streams deltas (text fragments, completed tool calls) and terminates with
// a stop reason plus that call's token usage.
type Model interface {
	Stream(ctx context.Context, req models.ModelRequest) (<-chan models.Delta, <-chan error)
}

// EventWriter is the outbound half of a stream transport: SSE over gin,
// a WebSocket connection, or a test recorder.
type EventWriter interface {
	WriteEvent(name string, payload any) error
	Flush()
}

// Terminal error codes surfaced on the error event.
const (
	CodeModelFailure = "model_failure"
	CodeMaxTurns     = "max_turns_exceeded"
	CodeHistory      = "history_unavailable"
)

// LoopError is a terminal conversation-loop failure.
type LoopError struct {
	Message   string
	Code      string
	Retryable bool
}

func (e *LoopError) Error() string {
	return e.Message
}

// DefaultMaxTurns bounds the generate/execute cycle; exceeding it fails the
// loop rather than letting a tool-happy model run away.
const DefaultMaxTurns = 10

// DefaultModelTimeout bounds one streamed model call, independently of the
// per-tool dispatch timeout.
const DefaultModelTimeout = 2 * time.Minute

// ChatSession drives one conversation's generate/execute loop. One logical
// loop runs per in-flight request; sessions share no mutable state beyond
// the store.
type ChatSession struct {
	Model          Model
	Registry       *tools.Registry
	Store          stores.MessageStore
	Logger         *log.Logger
	ConversationID string
	UserID         string
	ChildID        string
	SystemPrompt   string
	MaxTurns       int
	ModelTimeout   time.Duration
}

// LoopResult summarizes a completed loop: the accumulated assistant text,
// cumulative usage summed across every model call, and the turn count.
type LoopResult struct {
	Text       string
	Usage      models.Usage
	StopReason models.StopReason
	Turns      int
}
