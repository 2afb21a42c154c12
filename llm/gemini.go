package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/ktsujino/zenn-assist/errors"
	"google.golang.org/api/option"
)

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient creates a new GeminiClient.
// It requires the GEMINI_API_KEY environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiClient{
		model: client.GenerativeModel(modelName),
	}, nil
}

// Converse sends one request to the Gemini API. Gemini's grounding search is
// not wired here, so requests asking for native web search fail up front.
func (g *GeminiClient) Converse(ctx context.Context, req Request) (*Turn, error) {
	if req.WebSearch != nil {
		return nil, ErrWebSearchUnsupported
	}

	history := convertMessagesToGeminiContent(req.Messages)
	if len(history) == 0 {
		return nil, errors.New("gemini request requires at least one message")
	}

	g.model.Tools = convertToolsToGeminiTools(req.Tools)
	if req.System != "" {
		g.model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	// The last message is the new prompt; everything before it is history.
	lastMessage := history[len(history)-1]
	chatSession := g.model.StartChat()
	chatSession.History = history[:len(history)-1]

	resp, err := chatSession.SendMessage(ctx, lastMessage.Parts...)
	if err != nil {
		return nil, &TransportError{Provider: "gemini", Err: err}
	}

	return processGeminiResponse(resp)
}

// convertMessagesToGeminiContent converts our internal message format to
// Gemini's content format.
func convertMessagesToGeminiContent(messages []Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		switch {
		case len(msg.ToolResults) > 0:
			var parts []genai.Part
			for _, tr := range msg.ToolResults {
				parts = append(parts, genai.FunctionResponse{
					Name:     tr.Name,
					Response: map[string]interface{}{"result": tr.Content},
				})
			}
			contents = append(contents, &genai.Content{Role: "function", Parts: parts})

		case msg.Role == "assistant":
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Input})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	return contents
}

// convertToolsToGeminiTools converts our tool catalog to Gemini's
// FunctionDeclaration format.
func convertToolsToGeminiTools(ts []Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var funcDecls []*genai.FunctionDeclaration
	for _, t := range ts {
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchemaToGemini(t.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// convertSchemaToGemini maps a JSON input schema onto genai.Schema. Only the
// subset our tool catalog declares is covered.
func convertSchemaToGemini(schema map[string]interface{}) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}
	if schema == nil {
		return out
	}

	if typ, ok := schema["type"].(string); ok {
		switch typ {
		case "string":
			out.Type = genai.TypeString
		case "integer":
			out.Type = genai.TypeInteger
		case "number":
			out.Type = genai.TypeNumber
		case "boolean":
			out.Type = genai.TypeBoolean
		case "array":
			out.Type = genai.TypeArray
		}
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				out.Properties[name] = convertSchemaToGemini(pm)
			}
		}
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	}
	return out
}

// processGeminiResponse converts a Gemini API response into a Turn.
func processGeminiResponse(resp *genai.GenerateContentResponse) (*Turn, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	candidate := resp.Candidates[0]
	turn := &Turn{}

	callCounter := 0
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			turn.Text += string(v)
		case genai.FunctionCall:
			// Gemini does not assign call ids; synthesize stable ones.
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{
				ID:    fmt.Sprintf("call_%d_%s", callCounter, v.Name),
				Name:  v.Name,
				Input: v.Args,
			})
			callCounter++
		}
	}

	switch {
	case len(turn.ToolCalls) > 0:
		turn.StopReason = StopToolUse
	case candidate.FinishReason == genai.FinishReasonStop:
		turn.StopReason = StopEndTurn
	default:
		turn.StopReason = StopReason(candidate.FinishReason.String())
	}

	return turn, nil
}
