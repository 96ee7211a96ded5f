package models

// StopReason is the model's signal for why generation of a turn ended.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Usage tracks token consumption for one model call.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ToolCall is a completed tool invocation proposed by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Stop carries the terminal signal of one streamed model call.
type Stop struct {
	Reason StopReason `json:"reason"`
	Usage  Usage      `json:"usage"`
}

// Delta is one streamed unit from a model call. Exactly one field is set:
// a text fragment (forwarded in arrival order, never reordered), a completed
// tool call (accumulated for the current turn), or the terminal stop.
type Delta struct {
	Text     string    `json:"text,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Stop     *Stop     `json:"stop,omitempty"`
}

// ModelRequest is the provider-agnostic input for one model call.
type ModelRequest struct {
	System string            `json:"system,omitempty"`
	Turns  []Turn            `json:"turns"`
	Tools  []ToolDeclaration `json:"tools,omitempty"`
}
