// Package llm adapts vendor model APIs to one conversation contract: a
// request carries a system prompt, a tool catalog and the message history,
// and a turn comes back classified by its stop reason.
package llm

import (
	"context"
	"fmt"

	"github.com/ktsujino/zenn-assist/config"
	"github.com/ktsujino/zenn-assist/errors"
)

// StopReason classifies how a model turn ended.
type StopReason string

const (
	StopToolUse StopReason = "tool_use"
	StopEndTurn StopReason = "end_turn"
)

// Message is one role-tagged turn in the conversation history.
type Message struct {
	Role        string // "user" or "assistant"
	Content     string
	ToolCalls   []ToolCall   // assistant turns requesting tool execution
	ToolResults []ToolResult // user turns carrying tool results
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolResult is the outcome of one tool call, keyed to the requesting call.
// Name repeats the tool name; Gemini replays results by name, not by id.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
}

// Tool declares one entry of the tool catalog exposed to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// WebSearchOption enables the vendor-native web search capability for a
// request. Only the Anthropic backend supports it.
type WebSearchOption struct {
	MaxUses int
}

// Request bundles everything one Converse call sends to the model.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	WebSearch *WebSearchOption
}

// SearchResult is one cited link produced by the native web search tool.
type SearchResult struct {
	Title string
	URL   string
}

// Turn is one classified model response.
type Turn struct {
	StopReason    StopReason
	Text          string         // text blocks concatenated in emission order
	ToolCalls     []ToolCall     // in emission order
	SearchResults []SearchResult // in emission order
}

// AssistantMessage converts the turn into a history entry so the
// conversation can continue after tool execution.
func (t *Turn) AssistantMessage() Message {
	return Message{Role: "assistant", Content: t.Text, ToolCalls: t.ToolCalls}
}

// Client is the interface for one conversational exchange with a model.
type Client interface {
	Converse(ctx context.Context, req Request) (*Turn, error)
}

// TransportError reports that the model endpoint could not be reached or
// did not answer. It is never retried here; retry policy belongs to callers.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrWebSearchUnsupported is returned by backends that have no native web
// search capability when a request asks for one.
var ErrWebSearchUnsupported = errors.New("this llm backend does not support native web search")

// New constructs the backend selected by cfg for the given model name.
func New(ctx context.Context, cfg *config.Config, modelName string) (Client, error) {
	switch cfg.LLMClient {
	case "", "anthropic":
		return NewAnthropicClient(ctx, modelName, cfg.MaxTokens)
	case "bedrock":
		return NewBedrockClient(ctx, modelName, cfg.MaxTokens)
	case "openai":
		return NewOpenAIClient(ctx, modelName)
	case "gemini":
		return NewGeminiClient(ctx, modelName)
	default:
		return nil, errors.New("unknown llm client '%s'", cfg.LLMClient)
	}
}
