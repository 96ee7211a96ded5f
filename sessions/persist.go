package sessions

import (
	"encoding/json"
	"strings"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// Persistence failures are logged, never retried, and never re-execute a
// tool: the write happens after execution and idempotency is not assumed.
// A crash between execution and the write can lose the record of a side
// effect that happened; that gap is accepted here rather than papered over
// with a retry that could double-apply the effect.

func (s *ChatSession) persistUserMessage(text string) {
	if err := s.Store.SaveMessage(s.ConversationID, stores.NewMessage{
		Role:    stores.RoleUser,
		Content: text,
	}); err != nil {
		s.Logger.Printf("Error saving user message: %v", err)
	}
}

func (s *ChatSession) persistAssistantText(text string, usage models.Usage) {
	if err := s.Store.SaveMessage(s.ConversationID, stores.NewMessage{
		Role:         stores.RoleAssistant,
		Content:      text,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	}); err != nil {
		s.Logger.Printf("Error saving assistant text: %v", err)
	}
}

func (s *ChatSession) persistToolCall(call models.ToolCall) {
	payload, err := json.Marshal(stores.ToolCallPayload{ID: call.ID, Input: call.Input})
	if err != nil {
		s.Logger.Printf("Error marshalling tool_call %s (%s): %v", call.ID, call.Name, err)
		return
	}
	if err := s.Store.SaveMessage(s.ConversationID, stores.NewMessage{
		Role:       stores.RoleToolCall,
		Content:    string(payload),
		ToolName:   call.Name,
		ToolCallID: call.ID,
	}); err != nil {
		s.Logger.Printf("Error saving tool_call %s (%s): %v", call.ID, call.Name, err)
	}
}

func (s *ChatSession) persistToolResult(call models.ToolCall, result tools.Result) {
	if err := s.Store.SaveMessage(s.ConversationID, stores.NewMessage{
		Role:       stores.RoleToolResult,
		Content:    encodeResult(result),
		ToolName:   call.Name,
		ToolCallID: call.ID,
	}); err != nil {
		s.Logger.Printf("Error saving tool_result %s (%s): %v", call.ID, call.Name, err)
	}
}

// finishConversation refreshes updated_at and, on the conversation's first
// exchange, derives a short title from the opening user message.
func (s *ChatSession) finishConversation(firstExchange bool, userMessage string) {
	title := ""
	if firstExchange {
		title = DeriveTitle(userMessage)
	}
	if err := s.Store.TouchConversation(s.ConversationID, title); err != nil {
		s.Logger.Printf("Error refreshing conversation: %v", err)
	}
}

// encodeResult renders a dispatch result as the JSON payload stored in a
// tool_result row and fed back to the model.
func encodeResult(result tools.Result) string {
	payload := stores.ToolResultPayload{IsError: !result.Success}
	if result.Success {
		payload.Result = result.Data
	} else {
		payload.Result = result.Error
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		// Unmarshalable tool data degrades to an error payload.
		fallback, _ := json.Marshal(stores.ToolResultPayload{
			Result:  "tool result could not be encoded",
			IsError: true,
		})
		return string(fallback)
	}
	return string(encoded)
}

// resultData is the client-facing view of a dispatch result.
func resultData(result tools.Result) any {
	if result.Success {
		return result.Data
	}
	return result.Error
}

// titleMaxLen bounds derived conversation titles.
const titleMaxLen = 60

// DeriveTitle produces a short conversation title from the opening user
// message: the first line, truncated on a word boundary.
func DeriveTitle(userMessage string) string {
	title := strings.TrimSpace(userMessage)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if title == "" {
		return "New conversation"
	}
	if len(title) <= titleMaxLen {
		return title
	}
	cut := title[:titleMaxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
