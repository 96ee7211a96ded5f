package models

// Named stream events written to the client, in exactly the order the loop
// driver produces them.
const (
	EventText       = "text"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventDone       = "done"
	EventError      = "error"
)

// TextEvent is one text delta fragment.
type TextEvent struct {
	Content string `json:"content"`
}

// ToolCallEvent announces a proposed tool invocation.
type ToolCallEvent struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResultEvent carries a tool's outcome.
type ToolResultEvent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Result  any    `json:"result"`
	IsError bool   `json:"isError"`
}

// DoneEvent terminates a successful stream. Usage is cumulative across
// every model call made during the loop.
type DoneEvent struct {
	Usage      Usage      `json:"usage"`
	StopReason StopReason `json:"stopReason"`
}

// ErrorEvent terminates a failed stream.
type ErrorEvent struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}
