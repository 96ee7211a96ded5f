package sessions

import (
	"log"
	"sync"

	"github.com/kindredcare/kindred/models"
)

// Emitter serializes the loop driver's callbacks onto one ordered,
// single-writer outbound channel. Events go out in exactly the order the
// driver produces them: text before the tool_call that follows it,
// tool_call before its tool_result, tool_result before subsequent text.
//
// Once the client disconnects (or a write fails), the emitter latches shut:
// further events are dropped silently, but the loop keeps running so
// in-flight tool execution still completes and persists.
type Emitter struct {
	writer EventWriter
	logger *log.Logger

	mu           sync.Mutex
	disconnected bool
	terminated   bool
}

// NewEmitter wraps an EventWriter.
func NewEmitter(writer EventWriter, logger *log.Logger) *Emitter {
	return &Emitter{writer: writer, logger: logger}
}

// Text emits one text delta fragment.
func (e *Emitter) Text(content string) {
	e.emit(models.EventText, models.TextEvent{Content: content})
}

// ToolCall announces a proposed tool invocation.
func (e *Emitter) ToolCall(call models.ToolCall) {
	e.emit(models.EventToolCall, models.ToolCallEvent{
		ID:    call.ID,
		Name:  call.Name,
		Input: call.Input,
	})
}

// ToolResult emits a tool outcome.
func (e *Emitter) ToolResult(id, name string, result any, isError bool) {
	e.emit(models.EventToolResult, models.ToolResultEvent{
		ID:      id,
		Name:    name,
		Result:  result,
		IsError: isError,
	})
}

// Done emits the terminal success event. At most one terminal event is ever
// written; later terminal calls are dropped.
func (e *Emitter) Done(usage models.Usage, stopReason models.StopReason) {
	e.emitTerminal(models.EventDone, models.DoneEvent{Usage: usage, StopReason: stopReason})
}

// Error emits the terminal failure event.
func (e *Emitter) Error(loopErr *LoopError) {
	e.emitTerminal(models.EventError, models.ErrorEvent{
		Message:   loopErr.Message,
		Code:      loopErr.Code,
		Retryable: loopErr.Retryable,
	})
}

// Disconnect latches the emitter shut. Events already written stay written;
// nothing further reaches the transport.
func (e *Emitter) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnected = true
}

// Terminated reports whether a terminal event has been written.
func (e *Emitter) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

func (e *Emitter) emit(name string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.write(name, payload)
}

func (e *Emitter) emitTerminal(name string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return
	}
	if e.write(name, payload) {
		e.terminated = true
	}
}

// write assumes e.mu is held.
func (e *Emitter) write(name string, payload any) bool {
	if e.disconnected || e.terminated {
		return false
	}
	if err := e.writer.WriteEvent(name, payload); err != nil {
		if e.logger != nil {
			e.logger.Printf("Event write failed, dropping further events: %v", err)
		}
		e.disconnected = true
		return false
	}
	e.writer.Flush()
	return true
}
