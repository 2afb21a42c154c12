package zenn

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ktsujino/zenn-assist/errors"
	"github.com/ktsujino/zenn-assist/llm"
)

// AIGenerateRequest asks for a model-written article from a title prompt.
type AIGenerateRequest struct {
	Prompt string `json:"prompt"`
}

const writerPrompt = `You are a professional technical writer for Zenn.

Write a high-quality technical article in Japanese based on the title below,
and output ONLY a JSON object with the required fields.

# Input Title
%TITLE%

# Requirements for the article
- Write in Markdown format
- Use appropriate Markdown headers (##, ###)
- Include code examples when appropriate
- Article content must be long and detailed

# Output format requirements
- Output MUST be ONLY a valid JSON object
- NO explanation, NO surrounding text, NO backticks, NO markdown fences
- All values must be strings

# JSON shape
{"title": string, "emoji": string, "type": "tech" or "idea", "content": string}

# Finally write this in the content: "この記事はAIによって作成されました。"`

// Writer produces full article drafts with a model and parses the strict
// JSON answer into a GenerateRequest.
type Writer struct {
	client llm.Client
}

// NewWriter creates an article writer on top of client.
func NewWriter(client llm.Client) *Writer {
	return &Writer{client: client}
}

// WriteArticle asks the model for an article and parses its JSON answer.
func (w *Writer) WriteArticle(ctx context.Context, req AIGenerateRequest) (*GenerateRequest, error) {
	prompt := strings.ReplaceAll(writerPrompt, "%TITLE%", req.Prompt)

	turn, err := w.client.Converse(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	var generated GenerateRequest
	if err := json.Unmarshal([]byte(turn.Text), &generated); err != nil {
		return nil, errors.Wrapf(err, "model did not return valid article JSON")
	}
	if generated.Title == "" || generated.Content == "" {
		return nil, errors.New("article JSON missing title or content")
	}
	return &generated, nil
}
