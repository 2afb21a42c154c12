package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ktsujino/zenn-assist/errors"
)

// AnthropicClient is a client for the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicClient creates a new AnthropicClient.
// It requires the ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(ctx context.Context, modelName string, maxTokens int) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:    &client,
		model:     modelName,
		maxTokens: int64(maxTokens),
	}, nil
}

// Converse sends one request to the Anthropic API and classifies the response.
func (a *AnthropicClient) Converse(ctx context.Context, req Request) (*Turn, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  convertMessagesToAnthropicMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	params.Tools = convertToolsToAnthropicTools(req.Tools)
	if req.WebSearch != nil {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(int64(req.WebSearch.MaxUses)),
			},
		})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &TransportError{Provider: "anthropic", Err: err}
	}

	return processAnthropicResponse(resp)
}

// convertMessagesToAnthropicMessages converts our internal message format to
// Anthropic's block-structured format.
func convertMessagesToAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch {
		case len(msg.ToolResults) > 0:
			var contentItems []anthropic.ContentBlockParamUnion
			for _, tr := range msg.ToolResults {
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: tr.ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{
								Text: tr.Content,
							},
						}},
					},
				})
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: contentItems,
			})

		case msg.Role == "assistant":
			var contentItems []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{
						Text: msg.Content,
					},
				})
			}
			for _, tc := range msg.ToolCalls {
				inputBytes, err := json.Marshal(tc.Input)
				if err != nil {
					continue
				}
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: inputBytes,
					},
				})
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: contentItems,
			})

		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return anthropicMessages
}

// convertToolsToAnthropicTools converts our tool catalog to Anthropic's
// tool format, carrying the declared JSON input schema through.
func convertToolsToAnthropicTools(ts []Tool) []anthropic.ToolUnionParam {
	var anthropicTools []anthropic.ToolUnionParam
	for _, t := range ts {
		schema := anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		}
		if props, ok := t.InputSchema["properties"].(map[string]interface{}); ok {
			schema.Properties = props
		}
		if req, ok := t.InputSchema["required"].([]string); ok {
			schema.Required = req
		}
		anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return anthropicTools
}

// processAnthropicResponse converts an Anthropic API response into a Turn.
func processAnthropicResponse(resp *anthropic.Message) (*Turn, error) {
	turn := &Turn{}

	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		turn.StopReason = StopToolUse
	case anthropic.StopReasonEndTurn:
		turn.StopReason = StopEndTurn
	default:
		turn.StopReason = StopReason(resp.StopReason)
	}

	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			turn.Text += c.Text
		case anthropic.ToolUseBlock:
			var input map[string]interface{}
			if err := json.Unmarshal(c.Input, &input); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal tool call input")
			}
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{
				ID:    c.ID,
				Name:  c.Name,
				Input: input,
			})
		case anthropic.WebSearchToolResultBlock:
			turn.SearchResults = append(turn.SearchResults, extractSearchResults(c.Content.RawJSON())...)
		}
	}

	return turn, nil
}

// extractSearchResults pulls title/url pairs out of a web_search_tool_result
// content payload. The payload is either a list of web_search_result blocks
// or an error object; the error form yields no links.
func extractSearchResults(raw string) []SearchResult {
	var blocks []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		return nil
	}

	var results []SearchResult
	for _, b := range blocks {
		if b.Type == "web_search_result" {
			results = append(results, SearchResult{Title: b.Title, URL: b.URL})
		}
	}
	return results
}
