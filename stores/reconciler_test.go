package stores

import (
	"testing"

	"github.com/kindredcare/kindred/models"
)

func TestReconcileHistory_Empty(t *testing.T) {
	result := ReconcileHistory([]Message{})
	if len(result) != 0 {
		t.Errorf("Expected no turns, got %d", len(result))
	}
}

func TestReconcileHistory_SimpleExchange(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi there"},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(result))
	}
	if result[0].Role != models.RoleUser || result[0].Content[0].Text != "Hello" {
		t.Errorf("Unexpected first turn: %+v", result[0])
	}
	if result[1].Role != models.RoleAssistant || result[1].Content[0].Text != "Hi there" {
		t.Errorf("Unexpected second turn: %+v", result[1])
	}
}

func TestReconcileHistory_ToolCycle(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "How is Mia doing?"},
		{Role: RoleToolCall, ToolName: "get_child", ToolCallID: "tc1", Content: `{"id":"tc1","input":{"child_id":"c1"}}`},
		{Role: RoleToolResult, ToolName: "get_child", ToolCallID: "tc1", Content: `{"result":{"name":"Mia"}}`},
		{Role: RoleAssistant, Content: "Mia is doing well."},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 4 {
		t.Fatalf("Expected 4 turns, got %d: %+v", len(result), result)
	}
	if result[1].Role != models.RoleAssistant || result[1].Content[0].Type != models.BlockToolUse {
		t.Errorf("Expected assistant tool_use turn, got %+v", result[1])
	}
	if result[1].Content[0].ID != "tc1" || result[1].Content[0].Name != "get_child" {
		t.Errorf("Unexpected tool_use block: %+v", result[1].Content[0])
	}
	if result[2].Role != models.RoleUser || result[2].Content[0].Type != models.BlockToolResult {
		t.Errorf("Tool result must travel in a user-role turn, got %+v", result[2])
	}
	if result[2].Content[0].ToolUseID != "tc1" {
		t.Errorf("Expected tool_result keyed by tc1, got %q", result[2].Content[0].ToolUseID)
	}
}

func TestReconcileHistory_TextAndToolCallShareAssistantTurn(t *testing.T) {
	// Assistant text followed by a tool_call belongs to one assistant turn
	// with two blocks.
	msgs := []Message{
		{Role: RoleUser, Content: "Log that Mia slept well"},
		{Role: RoleAssistant, Content: "Let me record that."},
		{Role: RoleToolCall, ToolName: "log_observation", ToolCallID: "tc1", Content: `{"id":"tc1","input":{"note":"slept well"}}`},
		{Role: RoleToolResult, ToolName: "log_observation", ToolCallID: "tc1", Content: `{"result":"ok"}`},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 3 {
		t.Fatalf("Expected 3 turns, got %d: %+v", len(result), result)
	}
	if len(result[1].Content) != 2 {
		t.Fatalf("Expected assistant turn with 2 blocks, got %d", len(result[1].Content))
	}
	if result[1].Content[0].Type != models.BlockText || result[1].Content[1].Type != models.BlockToolUse {
		t.Errorf("Expected [text, tool_use] blocks, got %+v", result[1].Content)
	}
}

func TestReconcileHistory_ToolResultCannotShareTurnWithAssistantText(t *testing.T) {
	// Assistant text pending when a tool_result arrives: the text flushes
	// into its own assistant turn before the result is buffered.
	msgs := []Message{
		{Role: RoleAssistant, Content: "Checking now."},
		{Role: RoleToolResult, ToolCallID: "tc9", Content: `{"result":"data"}`},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(result))
	}
	if result[0].Role != models.RoleAssistant {
		t.Errorf("Expected assistant turn first, got %s", result[0].Role)
	}
	if result[1].Role != models.RoleUser || result[1].Content[0].Type != models.BlockToolResult {
		t.Errorf("Expected user-role tool_result turn, got %+v", result[1])
	}
}

func TestReconcileHistory_MalformedToolCallDropped(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleToolCall, ToolName: "get_child", Content: `{not json`},
		{Role: RoleAssistant, Content: "Hi"},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 turns (malformed tool_call dropped), got %d", len(result))
	}
	for _, turn := range result {
		for _, block := range turn.Content {
			if block.Type == models.BlockToolUse {
				t.Errorf("Malformed tool_call should not produce a tool_use block")
			}
		}
	}
}

func TestReconcileHistory_UnresolvedToolCallPreserved(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleToolCall, ToolName: "get_child", ToolCallID: "tc1", Content: `{"id":"tc1","input":{}}`},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(result))
	}
	last := result[len(result)-1]
	if last.Role != models.RoleAssistant || last.Content[0].Type != models.BlockToolUse {
		t.Errorf("Expected trailing assistant tool_use turn preserved, got %+v", last)
	}
}

func TestReconcileHistory_MultipleCallsOneTurn(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "Compare the kids"},
		{Role: RoleToolCall, ToolName: "get_child", ToolCallID: "tc1", Content: `{"id":"tc1","input":{"child_id":"c1"}}`},
		{Role: RoleToolCall, ToolName: "get_child", ToolCallID: "tc2", Content: `{"id":"tc2","input":{"child_id":"c2"}}`},
		{Role: RoleToolResult, ToolCallID: "tc1", Content: `{"result":"a"}`},
		{Role: RoleToolResult, ToolCallID: "tc2", Content: `{"result":"b"}`},
		{Role: RoleAssistant, Content: "Both are fine."},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 4 {
		t.Fatalf("Expected 4 turns, got %d: %+v", len(result), result)
	}
	if len(result[1].Content) != 2 {
		t.Errorf("Expected 2 tool_use blocks in one assistant turn, got %d", len(result[1].Content))
	}
	if len(result[2].Content) != 2 {
		t.Errorf("Expected 2 tool_result blocks in one user turn, got %d", len(result[2].Content))
	}
}

func TestReconcileHistory_ErrorResultFlagged(t *testing.T) {
	msgs := []Message{
		{Role: RoleToolResult, ToolCallID: "tc1", Content: `{"result":"unauthorized","is_error":true}`},
	}
	result := ReconcileHistory(msgs)
	if len(result) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(result))
	}
	if !result[0].Content[0].IsError {
		t.Error("Expected is_error carried through to the tool_result block")
	}
}

// Reconciling any transcript must never produce two consecutive
// assistant-role turns, and every tool_result must sit in a user-role turn.
func TestReconcileHistory_TurnStructureInvariants(t *testing.T) {
	transcripts := [][]Message{
		{
			{Role: RoleUser, Content: "a"},
			{Role: RoleAssistant, Content: "b"},
			{Role: RoleAssistant, Content: "c"},
			{Role: RoleUser, Content: "d"},
		},
		{
			{Role: RoleToolCall, ToolName: "t", ToolCallID: "1", Content: `{"id":"1","input":{}}`},
			{Role: RoleToolResult, ToolCallID: "1", Content: `{"result":"x"}`},
			{Role: RoleToolCall, ToolName: "t", ToolCallID: "2", Content: `{"id":"2","input":{}}`},
			{Role: RoleToolResult, ToolCallID: "2", Content: `{"result":"y"}`},
			{Role: RoleAssistant, Content: "done"},
		},
		{
			{Role: RoleAssistant, Content: "orphan text"},
			{Role: RoleUser, Content: "question"},
			{Role: RoleToolResult, ToolCallID: "z", Content: `{"result":"late"}`},
		},
	}

	for i, msgs := range transcripts {
		turns := ReconcileHistory(msgs)
		for j, turn := range turns {
			if j > 0 && turn.Role == models.RoleAssistant && turns[j-1].Role == models.RoleAssistant {
				t.Errorf("transcript %d: consecutive assistant turns at %d", i, j)
			}
			for _, block := range turn.Content {
				if block.Type == models.BlockToolResult && turn.Role != models.RoleUser {
					t.Errorf("transcript %d: tool_result block outside user turn at %d", i, j)
				}
			}
		}
	}
}
