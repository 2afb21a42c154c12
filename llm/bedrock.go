package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/ktsujino/zenn-assist/errors"
)

// BedrockClient is a client for Anthropic models on AWS Bedrock.
type BedrockClient struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

// NewBedrockClient creates a new BedrockClient.
// It requires AWS credentials to be configured in the environment.
func NewBedrockClient(ctx context.Context, modelID string, maxTokens int) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: maxTokens,
	}, nil
}

// Converse sends one request to an Anthropic model via Bedrock. The native
// web search capability is not available through InvokeModel.
func (b *BedrockClient) Converse(ctx context.Context, req Request) (*Turn, error) {
	if req.WebSearch != nil {
		return nil, ErrWebSearchUnsupported
	}

	body, err := createBedrockRequest(req, b.maxTokens)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, &TransportError{Provider: "bedrock", Err: err}
	}

	return processBedrockResponse(resp.Body)
}

// convertMessagesToBedrockFormat converts our internal message format to the
// Anthropic-on-Bedrock block format.
func convertMessagesToBedrockFormat(messages []Message) []map[string]interface{} {
	var bedrockMessages []map[string]interface{}

	for _, msg := range messages {
		switch {
		case len(msg.ToolResults) > 0:
			var blocks []map[string]interface{}
			for _, tr := range msg.ToolResults {
				blocks = append(blocks, map[string]interface{}{
					"type":        "tool_result",
					"tool_use_id": tr.ToolCallID,
					"content":     tr.Content,
				})
			}
			bedrockMessages = append(bedrockMessages, map[string]interface{}{
				"role":    "user",
				"content": blocks,
			})

		case msg.Role == "assistant":
			var blocks []map[string]interface{}
			if msg.Content != "" {
				blocks = append(blocks, map[string]interface{}{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Input,
				})
			}
			bedrockMessages = append(bedrockMessages, map[string]interface{}{
				"role":    "assistant",
				"content": blocks,
			})

		default:
			bedrockMessages = append(bedrockMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": msg.Content,
					},
				},
			})
		}
	}

	return bedrockMessages
}

// createBedrockRequest creates the request body for Anthropic models on Bedrock.
func createBedrockRequest(req Request, maxTokens int) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          convertMessagesToBedrockFormat(req.Messages),
	}

	if req.System != "" {
		request["system"] = req.System
	}

	if len(req.Tools) > 0 {
		var tools []map[string]interface{}
		for _, tool := range req.Tools {
			schema := tool.InputSchema
			if schema == nil {
				schema = map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				}
			}
			tools = append(tools, map[string]interface{}{
				"name":         tool.Name,
				"description":  tool.Description,
				"input_schema": schema,
			})
		}
		request["tools"] = tools
	}

	return json.Marshal(request)
}

// processBedrockResponse converts a Bedrock API response body into a Turn.
func processBedrockResponse(body []byte) (*Turn, error) {
	var response struct {
		StopReason string `json:"stop_reason"`
		Error      any    `json:"error"`
		Content    []struct {
			Type  string                 `json:"type"`
			Text  string                 `json:"text"`
			ID    string                 `json:"id"`
			Name  string                 `json:"name"`
			Input map[string]interface{} `json:"input"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}

	if response.Error != nil {
		return nil, errors.New("Bedrock API error: %v", response.Error)
	}

	turn := &Turn{StopReason: StopReason(response.StopReason)}

	toolCallIDCounter := 0
	for _, item := range response.Content {
		switch item.Type {
		case "text":
			turn.Text += item.Text
		case "tool_use":
			id := item.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", toolCallIDCounter, item.Name)
			}
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{
				ID:    id,
				Name:  item.Name,
				Input: item.Input,
			})
			toolCallIDCounter++
		}
	}

	return turn, nil
}
