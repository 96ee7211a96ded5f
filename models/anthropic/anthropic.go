package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kindredcare/kindred/models"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion = "2023-06-01"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 4096
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Model implements the conversation engine's model abstraction on the
// Anthropic Messages API, streaming deltas over SSE.
type Model struct {
	ModelName   string
	Temperature *float64
	MaxTokens   int
	BaseURL     string // Optional: custom API endpoint
	APIKeyEnv   string // Optional: env var name for API key (defaults to ANTHROPIC_API_KEY)

	// HTTPClient allows injecting a client; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Stream submits one model call and returns a channel of deltas: text
// fragments in arrival order, completed tool calls, and a terminal stop
// carrying the stop reason and this call's token usage.
func (m *Model) Stream(ctx context.Context, req models.ModelRequest) (<-chan models.Delta, <-chan error) {
	deltaChan := make(chan models.Delta)
	errChan := make(chan error, 1)

	go func() {
		defer close(deltaChan)
		defer close(errChan)

		apiReq := m.buildRequest(req)
		jsonBytes, err := json.Marshal(apiReq)
		if err != nil {
			errChan <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewReader(jsonBytes))
		if err != nil {
			errChan <- fmt.Errorf("failed to create HTTP request: %w", err)
			return
		}
		m.setHeaders(httpReq)

		client := m.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			errChan <- fmt.Errorf("HTTP request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("Anthropic API error: status %d, body: %s", resp.StatusCode, string(body))
			return
		}

		if err := parseSSEStream(resp.Body, deltaChan); err != nil {
			errChan <- fmt.Errorf("model stream read failed: %w", err)
		}
	}()

	return deltaChan, errChan
}

func (m *Model) setHeaders(req *http.Request) {
	keyEnv := m.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "ANTHROPIC_API_KEY"
	}
	req.Header.Set("x-api-key", os.Getenv(keyEnv))
	req.Header.Set("anthropic-version", DefaultAPIVersion)
	req.Header.Set("content-type", "application/json")
}

// buildRequest converts engine turns and tool declarations into the
// Messages API shape.
func (m *Model) buildRequest(req models.ModelRequest) APIRequest {
	modelName := m.ModelName
	if modelName == "" {
		modelName = DefaultModel
	}
	maxTokens := m.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	msgs := make([]APIMsg, 0, len(req.Turns))
	for _, turn := range req.Turns {
		blocks := make([]APIBlock, 0, len(turn.Content))
		for _, cb := range turn.Content {
			switch cb.Type {
			case models.BlockText:
				blocks = append(blocks, APIBlock{Type: "text", Text: cb.Text})
			case models.BlockToolUse:
				input := cb.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, APIBlock{Type: "tool_use", ID: cb.ID, Name: cb.Name, Input: input})
			case models.BlockToolResult:
				blocks = append(blocks, APIBlock{
					Type:      "tool_result",
					ToolUseID: cb.ToolUseID,
					Content:   cb.Content,
					IsError:   cb.IsError,
				})
			}
		}
		msgs = append(msgs, APIMsg{Role: turn.Role, Content: blocks})
	}

	apiTools := make([]APITool, 0, len(req.Tools))
	for _, t := range req.Tools {
		apiTools = append(apiTools, APITool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	return APIRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Messages:    msgs,
		System:      req.System,
		Tools:       apiTools,
		Stream:      true,
		Temperature: m.Temperature,
	}
}

// parseSSEStream reads Messages API SSE events and forwards engine deltas.
// A mid-stream read error is returned so the caller can surface the real
// cause instead of a generic truncation.
func parseSSEStream(r io.Reader, deltaChan chan<- models.Delta) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Track tool use blocks being built
	type toolBlock struct {
		id   string
		name string
		json strings.Builder
	}
	toolBlocks := make(map[int]*toolBlock)

	var usage models.Usage
	var stopReason string

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var raw struct {
			Type         string          `json:"type"`
			Index        int             `json:"index"`
			Message      json.RawMessage `json:"message"`
			ContentBlock json.RawMessage `json:"content_block"`
			Delta        json.RawMessage `json:"delta"`
			Usage        *APIUsage       `json:"usage"`
		}
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			continue
		}

		switch raw.Type {
		case EventMessageStart:
			if raw.Message != nil {
				var msg struct {
					Usage APIUsage `json:"usage"`
				}
				if err := json.Unmarshal(raw.Message, &msg); err == nil {
					usage.InputTokens = msg.Usage.InputTokens
				}
			}

		case EventContentBlockStart:
			if raw.ContentBlock != nil {
				var block APIBlock
				json.Unmarshal(raw.ContentBlock, &block)
				if block.Type == "tool_use" {
					toolBlocks[raw.Index] = &toolBlock{
						id:   block.ID,
						name: block.Name,
					}
				}
			}

		case EventContentBlockDelta:
			if raw.Delta != nil {
				var delta struct {
					Type        string `json:"type"`
					Text        string `json:"text"`
					PartialJSON string `json:"partial_json"`
				}
				json.Unmarshal(raw.Delta, &delta)

				if delta.Type == "text_delta" && delta.Text != "" {
					deltaChan <- models.Delta{Text: delta.Text}
				} else if delta.Type == "input_json_delta" {
					if tb, ok := toolBlocks[raw.Index]; ok {
						tb.json.WriteString(delta.PartialJSON)
					}
				}
			}

		case EventContentBlockStop:
			// Finalize tool call if this was a tool_use block
			if tb, ok := toolBlocks[raw.Index]; ok {
				var input map[string]any
				if err := json.Unmarshal([]byte(tb.json.String()), &input); err != nil {
					input = map[string]any{}
				}
				deltaChan <- models.Delta{ToolCall: &models.ToolCall{
					ID:    tb.id,
					Name:  tb.name,
					Input: input,
				}}
				delete(toolBlocks, raw.Index)
			}

		case EventMessageDelta:
			if raw.Delta != nil {
				var delta struct {
					StopReason string `json:"stop_reason"`
				}
				if err := json.Unmarshal(raw.Delta, &delta); err == nil && delta.StopReason != "" {
					stopReason = delta.StopReason
				}
			}
			if raw.Usage != nil {
				usage.OutputTokens = raw.Usage.OutputTokens
			}

		case EventMessageStop:
			reason := models.StopReason(stopReason)
			if reason == "" {
				reason = models.StopEndTurn
			}
			deltaChan <- models.Delta{Stop: &models.Stop{Reason: reason, Usage: usage}}
			return nil
		}
	}
	return scanner.Err()
}
