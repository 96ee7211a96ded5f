package anthropic

// Anthropic Messages API types

// APIRequest is the request body for the Messages API.
type APIRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []APIMsg  `json:"messages"`
	System      string    `json:"system,omitempty"`
	Tools       []APITool `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// APIMsg is a message in the Anthropic format.
type APIMsg struct {
	Role    string     `json:"role"` // "user" or "assistant"
	Content []APIBlock `json:"content"`
}

// APIBlock is a polymorphic content element.
type APIBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`          // tool_use ID
	Name      string `json:"name,omitempty"`        // tool name
	Input     any    `json:"input,omitempty"`       // tool input (map)
	ToolUseID string `json:"tool_use_id,omitempty"` // for tool_result
	Content   any    `json:"content,omitempty"`     // for tool_result
	IsError   bool   `json:"is_error,omitempty"`    // for tool_result
}

// APITool defines a tool for the Anthropic API.
type APITool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

// APIUsage tracks token consumption.
type APIUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Streaming SSE event types
const (
	EventMessageStart      = "message_start"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
)
