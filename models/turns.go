package models

// Roles a reconciled turn can carry. Tool results travel inside a
// user-role turn; the model never sees a bare tool_result role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one logical exchange attributed to the user or the assistant,
// made of one or more content blocks.
type Turn struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a tagged variant: exactly one of the typed fields is set
// depending on Type.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"

	// Type == "text"
	Text string `json:"text,omitempty"`

	// Type == "tool_use"
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// Type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}
