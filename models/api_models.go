package models

import "time"

// ChatRequest is the body of a send-message request from the route layer.
type ChatRequest struct {
	Message string `json:"message"`
	ChildID string `json:"child_id,omitempty"`
}

// ChatMessageResponse defines the structure for messages returned by the
// chat history endpoint. It excludes internal DB fields but keeps the
// identifiers a client needs to reconstruct tool call/result pairing.
type ChatMessageResponse struct {
	ID             uint      `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user", "assistant", "tool_call", "tool_result"
	Content        string    `json:"content"`
	ToolName       string    `json:"tool_name,omitempty"`
	ToolCallID     string    `json:"tool_call_id,omitempty"`
	InputTokens    int       `json:"input_tokens,omitempty"`
	OutputTokens   int       `json:"output_tokens,omitempty"`
}

// ConversationResponse is the listing shape for a caregiver's conversations.
type ConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	ChildID        string `json:"child_id,omitempty"`
	MessageCount   int    `json:"message_count"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}
