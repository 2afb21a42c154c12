package llm

import (
	"encoding/json"
	"testing"
)

func TestCreateBedrockRequest(t *testing.T) {
	req := Request{
		System: "You are a reviewer.",
		Messages: []Message{
			{Role: "user", Content: "review this draft"},
		},
		Tools: []Tool{
			{
				Name:        "web_search",
				Description: "Search the web",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{"type": "string"},
					},
					"required": []string{"query"},
				},
			},
		},
	}

	body, err := createBedrockRequest(req, 1000)
	if err != nil {
		t.Fatalf("createBedrockRequest failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if decoded["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %v", decoded["anthropic_version"])
	}
	if decoded["max_tokens"] != float64(1000) {
		t.Errorf("max_tokens = %v", decoded["max_tokens"])
	}
	if decoded["system"] != "You are a reviewer." {
		t.Errorf("system = %v", decoded["system"])
	}

	tools, ok := decoded["tools"].([]interface{})
	if !ok || len(tools) != 1 {
		t.Fatalf("tools = %v", decoded["tools"])
	}
	tool := tools[0].(map[string]interface{})
	if tool["name"] != "web_search" {
		t.Errorf("tool name = %v", tool["name"])
	}
	if _, ok := tool["input_schema"].(map[string]interface{}); !ok {
		t.Errorf("input_schema missing: %v", tool)
	}
}

func TestCreateBedrockRequestOmitsEmptySections(t *testing.T) {
	body, err := createBedrockRequest(Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, 500)
	if err != nil {
		t.Fatalf("createBedrockRequest failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["system"]; ok {
		t.Error("system must be omitted when empty")
	}
	if _, ok := decoded["tools"]; ok {
		t.Error("tools must be omitted when empty")
	}
}

func TestConvertMessagesToBedrockFormat(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "question"},
		{
			Role:    "assistant",
			Content: "let me check",
			ToolCalls: []ToolCall{
				{ID: "call_1", Name: "web_search", Input: map[string]interface{}{"query": "q"}},
			},
		},
		{
			Role: "user",
			ToolResults: []ToolResult{
				{ToolCallID: "call_1", Name: "web_search", Content: "result text"},
			},
		},
	}

	converted := convertMessagesToBedrockFormat(messages)
	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}

	assistant := converted[1]
	if assistant["role"] != "assistant" {
		t.Errorf("role = %v", assistant["role"])
	}
	blocks := assistant["content"].([]map[string]interface{})
	if len(blocks) != 2 {
		t.Fatalf("assistant blocks = %v", blocks)
	}
	if blocks[0]["type"] != "text" || blocks[1]["type"] != "tool_use" {
		t.Errorf("assistant block order wrong: %v", blocks)
	}
	if blocks[1]["id"] != "call_1" {
		t.Errorf("tool_use id = %v", blocks[1]["id"])
	}

	toolResult := converted[2]
	if toolResult["role"] != "user" {
		t.Errorf("tool result role = %v", toolResult["role"])
	}
	trBlocks := toolResult["content"].([]map[string]interface{})
	if trBlocks[0]["type"] != "tool_result" || trBlocks[0]["tool_use_id"] != "call_1" {
		t.Errorf("tool result block = %v", trBlocks[0])
	}
}

func TestProcessBedrockResponseText(t *testing.T) {
	body := []byte(`{
		"stop_reason": "end_turn",
		"content": [
			{"type": "text", "text": "first part "},
			{"type": "text", "text": "second part"}
		]
	}`)

	turn, err := processBedrockResponse(body)
	if err != nil {
		t.Fatalf("processBedrockResponse failed: %v", err)
	}
	if turn.StopReason != StopEndTurn {
		t.Errorf("stop reason = %q", turn.StopReason)
	}
	if turn.Text != "first part second part" {
		t.Errorf("text = %q", turn.Text)
	}
}

func TestProcessBedrockResponseToolUse(t *testing.T) {
	body := []byte(`{
		"stop_reason": "tool_use",
		"content": [
			{"type": "tool_use", "id": "toolu_1", "name": "web_search", "input": {"query": "zenn"}},
			{"type": "tool_use", "name": "web_search", "input": {"query": "cli"}}
		]
	}`)

	turn, err := processBedrockResponse(body)
	if err != nil {
		t.Fatalf("processBedrockResponse failed: %v", err)
	}
	if turn.StopReason != StopToolUse {
		t.Errorf("stop reason = %q", turn.StopReason)
	}
	if len(turn.ToolCalls) != 2 {
		t.Fatalf("tool calls = %v", turn.ToolCalls)
	}
	if turn.ToolCalls[0].ID != "toolu_1" {
		t.Errorf("first id = %q", turn.ToolCalls[0].ID)
	}
	// An id is synthesized when the model omits one.
	if turn.ToolCalls[1].ID != "call_1_web_search" {
		t.Errorf("synthesized id = %q", turn.ToolCalls[1].ID)
	}
	if turn.ToolCalls[0].Input["query"] != "zenn" {
		t.Errorf("input = %v", turn.ToolCalls[0].Input)
	}
}

func TestProcessBedrockResponseError(t *testing.T) {
	body := []byte(`{"error": {"message": "model not found"}}`)

	if _, err := processBedrockResponse(body); err == nil {
		t.Fatal("expected an error for an error response")
	}
}
