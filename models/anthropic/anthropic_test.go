package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kindredcare/kindred/models"
)

const toolUseFixture = `data: {"type":"message_start","message":{"usage":{"input_tokens":42,"output_tokens":1}}}

data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Let me check"}}

data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" that."}}

data: {"type":"content_block_stop","index":0}

data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"tc1","name":"get_child","input":{}}}

data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"child_id\":"}}

data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"c1\"}"}}

data: {"type":"content_block_stop","index":1}

data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":17}}

data: {"type":"message_stop"}

`

func fixtureServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

func TestStream_ToolUseTurn(t *testing.T) {
	srv := fixtureServer(t, toolUseFixture)
	defer srv.Close()

	m := &Model{BaseURL: srv.URL}
	deltaChan, errChan := m.Stream(context.Background(), models.ModelRequest{
		Turns: []models.Turn{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("hi")}}},
	})

	var text string
	var calls []models.ToolCall
	var stop *models.Stop

	for delta := range deltaChan {
		switch {
		case delta.Text != "":
			text += delta.Text
		case delta.ToolCall != nil:
			calls = append(calls, *delta.ToolCall)
		case delta.Stop != nil:
			stop = delta.Stop
		}
	}
	if err := <-errChan; err != nil {
		t.Fatalf("Unexpected stream error: %v", err)
	}

	if text != "Let me check that." {
		t.Errorf("Expected accumulated text, got %q", text)
	}
	if len(calls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "tc1" || calls[0].Name != "get_child" {
		t.Errorf("Unexpected tool call: %+v", calls[0])
	}
	if calls[0].Input["child_id"] != "c1" {
		t.Errorf("Expected assembled input from partial JSON, got %v", calls[0].Input)
	}
	if stop == nil {
		t.Fatal("Expected terminal stop delta")
	}
	if stop.Reason != models.StopToolUse {
		t.Errorf("Expected tool_use stop reason, got %s", stop.Reason)
	}
	if stop.Usage.InputTokens != 42 || stop.Usage.OutputTokens != 17 {
		t.Errorf("Unexpected usage: %+v", stop.Usage)
	}
}

func TestStream_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","message":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := &Model{BaseURL: srv.URL}
	deltaChan, errChan := m.Stream(context.Background(), models.ModelRequest{})

	for range deltaChan {
	}
	if err := <-errChan; err == nil {
		t.Error("Expected error from non-200 response")
	}
}

// brokenReader serves its payload once, then fails every further read.
type brokenReader struct {
	payload []byte
	err     error
	served  bool
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.served {
		r.served = true
		return copy(p, r.payload), nil
	}
	return 0, r.err
}

func TestParseSSEStream_ReadErrorSurfaces(t *testing.T) {
	partial := "data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Let me\"}}\n\n"
	readErr := errors.New("connection reset by peer")

	deltaChan := make(chan models.Delta, 8)
	err := parseSSEStream(&brokenReader{payload: []byte(partial), err: readErr}, deltaChan)

	if !errors.Is(err, readErr) {
		t.Errorf("Expected the read error surfaced, got %v", err)
	}
	// The text streamed before the failure still came through.
	select {
	case delta := <-deltaChan:
		if delta.Text != "Let me" {
			t.Errorf("Expected partial text delta, got %+v", delta)
		}
	default:
		t.Error("Expected the pre-failure text delta to be forwarded")
	}
}

func TestBuildRequest_MapsBlocksAndTools(t *testing.T) {
	m := &Model{ModelName: "claude-test", MaxTokens: 128}
	req := m.buildRequest(models.ModelRequest{
		System: "You are a family assistant.",
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("hi")}},
			{Role: models.RoleAssistant, Content: []models.ContentBlock{
				models.ToolUseBlock("tc1", "get_child", map[string]any{"child_id": "c1"}),
			}},
			{Role: models.RoleUser, Content: []models.ContentBlock{
				models.ToolResultBlock("tc1", `{"result":"ok"}`, false),
			}},
		},
		Tools: []models.ToolDeclaration{{Name: "get_child", Description: "d"}},
	})

	if req.Model != "claude-test" || req.MaxTokens != 128 || !req.Stream {
		t.Errorf("Unexpected request envelope: %+v", req)
	}
	if req.System != "You are a family assistant." {
		t.Errorf("System prompt not carried: %q", req.System)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(req.Messages))
	}
	if req.Messages[1].Content[0].Type != "tool_use" || req.Messages[1].Content[0].ID != "tc1" {
		t.Errorf("tool_use block not mapped: %+v", req.Messages[1].Content[0])
	}
	if req.Messages[2].Content[0].Type != "tool_result" || req.Messages[2].Content[0].ToolUseID != "tc1" {
		t.Errorf("tool_result block not mapped: %+v", req.Messages[2].Content[0])
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "get_child" {
		t.Errorf("Tools not mapped: %+v", req.Tools)
	}
}
