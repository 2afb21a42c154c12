package llm

import "testing"

func TestExtractSearchResults(t *testing.T) {
	raw := `[
		{"type": "web_search_result", "title": "Zenn docs", "url": "https://zenn.dev/docs", "encrypted_content": "x"},
		{"type": "web_search_result", "title": "CLI guide", "url": "https://zenn.dev/cli"},
		{"type": "something_else", "title": "ignored", "url": "https://ignored.example"}
	]`

	results := extractSearchResults(raw)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", results)
	}
	if results[0].Title != "Zenn docs" || results[0].URL != "https://zenn.dev/docs" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].URL != "https://zenn.dev/cli" {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestExtractSearchResultsErrorPayload(t *testing.T) {
	// A web_search_tool_result content can be an error object instead of a
	// result list; that shape yields no links.
	raw := `{"type": "web_search_tool_result_error", "error_code": "unavailable"}`
	if results := extractSearchResults(raw); results != nil {
		t.Errorf("expected no results for an error payload, got %v", results)
	}
}

func TestTurnAssistantMessage(t *testing.T) {
	turn := &Turn{
		StopReason: StopToolUse,
		Text:       "let me check",
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "web_search", Input: map[string]interface{}{"query": "q"}},
		},
	}

	msg := turn.AssistantMessage()
	if msg.Role != "assistant" {
		t.Errorf("role = %q", msg.Role)
	}
	if msg.Content != "let me check" {
		t.Errorf("content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ID != "call_1" {
		t.Errorf("tool calls = %v", msg.ToolCalls)
	}
}
