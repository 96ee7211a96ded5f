package stores

import (
	"encoding/json"
	"log"

	"github.com/kindredcare/kindred/models"
)

// ReconcileHistory converts a conversation's flat, time-ordered message log
// into model-turn structured content.
//
// The persisted log interleaves four row roles (user, assistant, tool_call,
// tool_result) while the model expects alternating user/assistant turns
// whose content is made of blocks. Two buffers bridge the gap: pending
// assistant content (text and tool_use blocks) and pending tool results
// (which must travel inside a user-role turn).
//
// Rules per row:
//   - user: flush pending assistant content, then pending tool results,
//     then emit the user message as its own turn.
//   - assistant: flush pending tool results first, then buffer the text
//     block. A turn may span multiple blocks, so no flush here.
//   - tool_call: parse the stored {id, input} payload and buffer a tool_use
//     block on the assistant side. Malformed payloads are dropped.
//   - tool_result: flush pending assistant content (a tool result cannot
//     share a turn with plain assistant text), then buffer a tool_result
//     block keyed by the call ID.
//
// An unresolved tool_call (no later tool_result) is preserved as-is.
func ReconcileHistory(msgs []Message) []models.Turn {
	turns := make([]models.Turn, 0, len(msgs))
	var assistantBuf []models.ContentBlock
	var toolResultBuf []models.ContentBlock

	flushAssistant := func() {
		if len(assistantBuf) > 0 {
			turns = append(turns, models.Turn{Role: models.RoleAssistant, Content: assistantBuf})
			assistantBuf = nil
		}
	}
	flushToolResults := func() {
		if len(toolResultBuf) > 0 {
			turns = append(turns, models.Turn{Role: models.RoleUser, Content: toolResultBuf})
			toolResultBuf = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			flushAssistant()
			flushToolResults()
			turns = append(turns, models.Turn{
				Role:    models.RoleUser,
				Content: []models.ContentBlock{models.TextBlock(msg.Content)},
			})

		case RoleAssistant:
			flushToolResults()
			assistantBuf = append(assistantBuf, models.TextBlock(msg.Content))

		case RoleToolCall:
			var payload ToolCallPayload
			if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
				// Non-fatal: the call cannot be replayed to the model, but a
				// broken row must not poison the rest of the history.
				log.Printf("[RECONCILER] Dropping malformed tool_call row (conv %s, seq %d): %v",
					msg.ConversationID, msg.Sequence, err)
				continue
			}
			assistantBuf = append(assistantBuf, models.ToolUseBlock(payload.ID, msg.ToolName, payload.Input))

		case RoleToolResult:
			flushAssistant()
			isError := false
			var payload ToolResultPayload
			if err := json.Unmarshal([]byte(msg.Content), &payload); err == nil {
				isError = payload.IsError
			}
			toolResultBuf = append(toolResultBuf, models.ToolResultBlock(msg.ToolCallID, msg.Content, isError))

		default:
			log.Printf("[RECONCILER] Unknown message role '%s' at seq %d, skipping", msg.Role, msg.Sequence)
		}
	}

	flushAssistant()
	flushToolResults()

	return turns
}
