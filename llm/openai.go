package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ktsujino/zenn-assist/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient is a client for the OpenAI Chat Completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAIClient. It requires the OPENAI_API_KEY
// environment variable to be set, and supports OPENAI_BASE_URL for custom
// API endpoints.
func NewOpenAIClient(ctx context.Context, modelName string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	// The v2 SDK returns a value; keep a pointer to it.
	return &OpenAIClient{client: &c, model: modelName}, nil
}

// Converse sends one request to OpenAI. Chat completions have no native web
// search tool, so requests asking for one fail up front.
func (o *OpenAIClient) Converse(ctx context.Context, req Request) (*Turn, error) {
	if req.WebSearch != nil {
		return nil, ErrWebSearchUnsupported
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: convertMessagesToOpenAIContent(req),
		Tools:    convertToolsToOpenAITools(req.Tools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &TransportError{Provider: "openai", Err: err}
	}

	return processOpenAIResponse(resp)
}

// processOpenAIResponse converts an OpenAI API response into a Turn, mapping
// the finish reason onto our stop reason vocabulary.
func processOpenAIResponse(resp *openai.ChatCompletion) (*Turn, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("received an empty response from OpenAI")
	}

	choice := resp.Choices[0]
	turn := &Turn{Text: choice.Message.Content}

	switch choice.FinishReason {
	case "tool_calls":
		turn.StopReason = StopToolUse
	case "stop":
		turn.StopReason = StopEndTurn
	default:
		turn.StopReason = StopReason(choice.FinishReason)
	}

	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		// Arguments come back as a JSON string.
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal function call arguments from OpenAI")
		}
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	return turn, nil
}

// convertMessagesToOpenAIContent converts our internal message format to
// OpenAI's, prepending the system prompt when present.
func convertMessagesToOpenAIContent(req Request) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		chatMessages = append(chatMessages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch {
		case len(msg.ToolResults) > 0:
			for _, tr := range msg.ToolResults {
				chatMessages = append(chatMessages, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}

		case msg.Role == "assistant":
			assistantMessage := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				inputBytes, err := json.Marshal(tc.Input)
				if err != nil {
					continue
				}
				assistantMessage.ToolCalls = append(assistantMessage.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(inputBytes),
					},
				})
			}
			chatMessages = append(chatMessages, assistantMessage.ToParam())

		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}

// convertToolsToOpenAITools converts our tool catalog to the OpenAI function
// tool format, passing the declared JSON input schema through.
func convertToolsToOpenAITools(ts []Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var openAITools []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
		for k, v := range t.InputSchema {
			params[k] = v
		}

		openAITools = append(openAITools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		}))
	}
	return openAITools
}
