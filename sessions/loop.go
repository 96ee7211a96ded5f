package sessions

import (
	"context"
	"fmt"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// Loop states. The generate/execute cycle is an explicit state machine with
// a bounded turn counter, not recursion.
type loopState int

const (
	stateGenerating loopState = iota
	stateAwaitingTools
	stateDone
	stateFailed
)

func (s loopState) String() string {
	switch s {
	case stateGenerating:
		return "GENERATING"
	case stateAwaitingTools:
		return "AWAITING_TOOLS"
	case stateDone:
		return "DONE"
	case stateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Run drives one complete request: persist the user message, reconcile
// history into turns, then alternate model generation and sequential tool
// execution until the model stops without proposing tools, the turn bound
// trips, or the model call fails.
//
// Every terminal path emits exactly one done or error event through the
// emitter. Client disconnect (ctx cancellation) stops event delivery and
// prevents starting new tool calls, but an already-dispatched call finishes
// and its rows are persisted.
func (s *ChatSession) Run(ctx context.Context, userMessage string, emitter *Emitter) (*LoopResult, error) {
	maxTurns := s.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	history, err := s.Store.FetchHistory(s.ConversationID, 0)
	if err != nil {
		loopErr := &LoopError{Message: "failed to fetch history", Code: CodeHistory, Retryable: true}
		emitter.Error(loopErr)
		return nil, loopErr
	}
	firstExchange := len(history) == 0

	turns := stores.ReconcileHistory(history)
	turns = append(turns, models.Turn{
		Role:    models.RoleUser,
		Content: []models.ContentBlock{models.TextBlock(userMessage)},
	})

	s.persistUserMessage(userMessage)

	executor := s.Registry.Executor(tools.ToolContext{
		UserID:         s.UserID,
		ConversationID: s.ConversationID,
		ChildID:        s.ChildID,
	})
	toolDefs := s.Registry.Definitions()

	var cumulative models.Usage
	var fullText string
	state := stateGenerating

	for turn := 1; ; turn++ {
		if turn > maxTurns {
			state = stateFailed
			s.Logger.Printf("Turn %d: -> %s (turn bound %d exceeded)", turn, state, maxTurns)
			loopErr := &LoopError{
				Message: fmt.Sprintf("max turns exceeded (%d)", maxTurns),
				Code:    CodeMaxTurns,
			}
			emitter.Error(loopErr)
			return nil, loopErr
		}

		s.Logger.Printf("Turn %d: %s (history %d turns)", turn, state, len(turns))

		turnText, calls, stop, err := s.generate(ctx, emitter, models.ModelRequest{
			System: s.SystemPrompt,
			Turns:  turns,
			Tools:  toolDefs,
		})
		if err != nil {
			state = stateFailed
			s.Logger.Printf("Turn %d: -> %s (%v)", turn, state, err)
			loopErr := &LoopError{Message: err.Error(), Code: CodeModelFailure, Retryable: true}
			emitter.Error(loopErr)
			return nil, loopErr
		}

		cumulative.Add(stop.Usage)
		fullText += turnText

		if turnText != "" {
			s.persistAssistantText(turnText, stop.Usage)
		}

		if stop.Reason == models.StopToolUse && len(calls) > 0 {
			state = stateAwaitingTools
			s.Logger.Printf("Turn %d: -> %s (%d call(s))", turn, state, len(calls))

			assistantBlocks := make([]models.ContentBlock, 0, len(calls)+1)
			if turnText != "" {
				assistantBlocks = append(assistantBlocks, models.TextBlock(turnText))
			}
			resultBlocks := make([]models.ContentBlock, 0, len(calls))

			// Tool calls for one turn execute sequentially, never
			// concurrently: side effects against one child's data keep a
			// total order and the persisted log stays deterministic.
			for _, call := range calls {
				if ctx.Err() != nil {
					// Client gone: no new calls start. Finished calls are
					// already persisted; nothing further is emitted.
					s.Logger.Printf("Context cancelled before dispatching %s, stopping loop", call.Name)
					return nil, ctx.Err()
				}

				emitter.ToolCall(call)
				s.persistToolCall(call)

				// An already-dispatched call runs to completion even if the
				// client disconnects mid-flight.
				result := executor.Dispatch(context.WithoutCancel(ctx), call.Name, call.Input)
				s.persistToolResult(call, result)
				emitter.ToolResult(call.ID, call.Name, resultData(result), !result.Success)

				assistantBlocks = append(assistantBlocks, models.ToolUseBlock(call.ID, call.Name, call.Input))
				resultBlocks = append(resultBlocks, models.ToolResultBlock(call.ID, encodeResult(result), !result.Success))
			}

			turns = append(turns,
				models.Turn{Role: models.RoleAssistant, Content: assistantBlocks},
				models.Turn{Role: models.RoleUser, Content: resultBlocks},
			)
			state = stateGenerating
			continue
		}

		state = stateDone
		s.Logger.Printf("Turn %d: -> %s", turn, state)

		s.finishConversation(firstExchange, userMessage)
		emitter.Done(cumulative, stop.Reason)

		return &LoopResult{
			Text:       fullText,
			Usage:      cumulative,
			StopReason: stop.Reason,
			Turns:      turn,
		}, nil
	}
}

// generate runs one model call, forwarding text deltas in arrival order and
// accumulating completed tool calls until the terminal stop arrives. The
// call carries its own timeout, independent of the per-tool dispatch bound.
func (s *ChatSession) generate(ctx context.Context, emitter *Emitter, req models.ModelRequest) (string, []models.ToolCall, *models.Stop, error) {
	callCtx := ctx
	if s.ModelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.ModelTimeout)
		defer cancel()
	}

	deltaChan, errChan := s.Model.Stream(callCtx, req)

	var text string
	var calls []models.ToolCall
	var stop *models.Stop

	for deltaChan != nil || errChan != nil {
		select {
		case delta, ok := <-deltaChan:
			if !ok {
				deltaChan = nil
				continue
			}
			switch {
			case delta.Text != "":
				text += delta.Text
				emitter.Text(delta.Text)
			case delta.ToolCall != nil:
				calls = append(calls, *delta.ToolCall)
			case delta.Stop != nil:
				stop = delta.Stop
			}

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				// The producer may still be sending deltas; unblock it so
				// it can run to completion and close its channels.
				drainModel(deltaChan, errChan)
				return text, nil, nil, fmt.Errorf("model stream failed: %w", err)
			}

		case <-callCtx.Done():
			drainModel(deltaChan, errChan)
			return text, nil, nil, fmt.Errorf("model call aborted: %w", callCtx.Err())
		}
	}

	if stop == nil {
		return text, nil, nil, fmt.Errorf("model stream ended without a stop reason")
	}
	return text, calls, stop, nil
}

// drainModel discards whatever a model producer still has in flight so an
// early return never leaves it blocked on a send.
func drainModel(deltaChan <-chan models.Delta, errChan <-chan error) {
	if deltaChan != nil {
		go func() {
			for range deltaChan {
			}
		}()
	}
	if errChan != nil {
		go func() {
			for range errChan {
			}
		}()
	}
}
