// Package agent runs the bounded tool-use loop that turns a writing session
// into structured editorial suggestions, delegating web_search tool calls to
// a nested search sub-agent.
package agent

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ktsujino/zenn-assist/llm"
	"github.com/ktsujino/zenn-assist/session"
)

// Suggestion is one ordered unit of editorial advice. Priority ranks
// urgency ascending: 1 is the most urgent.
type Suggestion struct {
	SuggestionID string `json:"suggestion_id"`
	Type         string `json:"type"` // structure | content | improvement
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     int    `json:"priority"`
}

// suggestionPayload is the model's raw final answer.
type suggestionPayload struct {
	Suggestions   []Suggestion `json:"suggestions"`
	SummaryReport string       `json:"summary_report"`
}

// SuggestionResponse is the validated batch returned to the caller: the
// suggestions, every link cited by web search during the request, and the
// summary report.
type SuggestionResponse struct {
	Suggestions   []Suggestion  `json:"suggestions"`
	RelatedLinks  []RelatedLink `json:"related_links"`
	SummaryReport string        `json:"summary_report"`
}

const suggestEndpoint = "/assist"

const suggestSystemPrompt = `You are a writing assistant for in-progress technical articles. Review the
session state and the section currently being edited, research with the
web_search tool when the draft would benefit from sources, and answer with
ONLY a JSON object of this exact shape:

{"suggestions": [{"suggestion_id": string, "type": "structure"|"content"|"improvement", "title": string, "description": string, "priority": integer}], "summary_report": string}

Priority is ascending urgency: 1 means fix first. No surrounding text, no
markdown fences.`

// SuggestAgent runs the suggestion loop for one request at a time. The
// conversation state lives only for the duration of one GenerateSuggestion
// call.
type SuggestAgent struct {
	client       llm.Client
	searcher     Searcher
	maxTurns     int
	modelTimeout time.Duration
}

// NewSuggestAgent creates a suggestion orchestrator. maxTurns bounds the
// loop; modelTimeout (if > 0) caps every individual model call.
func NewSuggestAgent(client llm.Client, searcher Searcher, maxTurns int, modelTimeout time.Duration) *SuggestAgent {
	return &SuggestAgent{
		client:       client,
		searcher:     searcher,
		maxTurns:     maxTurns,
		modelTimeout: modelTimeout,
	}
}

// GenerateSuggestion drives the tool-use loop until the model produces a
// valid suggestion payload or the turn bound is reached. Sub-agent and
// transport failures propagate unchanged; no partial response is returned.
func (a *SuggestAgent) GenerateSuggestion(ctx context.Context, ws *session.WritingSession, currentSectionID, currentContent string) (*SuggestionResponse, error) {
	messages := []llm.Message{
		{Role: "user", Content: buildPrompt(ws, currentSectionID, currentContent)},
	}

	// Links accumulate across every web_search call of this request,
	// deduplicated by URL.
	linkSet := make(map[string]bool)
	var relatedLinks []RelatedLink

	for turnCount := 0; turnCount < a.maxTurns; turnCount++ {
		turn, err := a.converse(ctx, messages)
		if err != nil {
			return nil, err
		}

		switch turn.StopReason {
		case llm.StopToolUse:
			messages = append(messages, turn.AssistantMessage())

			// Tool calls run sequentially in the order the model
			// requested them; the whole batch becomes one user turn.
			var results []llm.ToolResult
			for _, call := range turn.ToolCalls {
				result, links, err := a.executeTool(ctx, call)
				if err != nil {
					return nil, err
				}
				for _, l := range links {
					if !linkSet[l.URL] {
						linkSet[l.URL] = true
						relatedLinks = append(relatedLinks, l)
					}
				}
				results = append(results, llm.ToolResult{
					ToolCallID: call.ID,
					Name:       call.Name,
					Content:    result,
				})
			}
			messages = append(messages, llm.Message{Role: "user", ToolResults: results})

		case llm.StopEndTurn:
			payload, err := parseSuggestionPayload(turn.Text)
			if err != nil {
				return nil, &ValidationError{Err: err}
			}
			return &SuggestionResponse{
				Suggestions:   sortByPriority(payload.Suggestions),
				RelatedLinks:  relatedLinks,
				SummaryReport: payload.SummaryReport,
			}, nil

		default:
			return nil, &ProtocolError{
				Agent:      "suggest",
				Endpoint:   suggestEndpoint,
				StopReason: string(turn.StopReason),
				Message:    "turn ended with neither tool use nor normal completion",
			}
		}
	}

	return nil, &TurnLimitError{Limit: a.maxTurns}
}

func (a *SuggestAgent) converse(ctx context.Context, messages []llm.Message) (*llm.Turn, error) {
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}
	return a.client.Converse(ctx, llm.Request{
		System:   suggestSystemPrompt,
		Tools:    []llm.Tool{webSearchTool()},
		Messages: messages,
	})
}

// executeTool dispatches one tool call. Only web_search is recognized; any
// other name yields a sentinel result so the conversation stays alive even
// when the model hallucinates a tool. The sub-agent's model call gets the
// same per-call deadline as the orchestrator's own calls.
func (a *SuggestAgent) executeTool(ctx context.Context, call llm.ToolCall) (string, []RelatedLink, error) {
	switch call.Name {
	case "web_search":
		query, _ := call.Input["query"].(string)
		if a.modelTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
			defer cancel()
		}
		result, err := a.searcher.Search(ctx, query)
		if err != nil {
			return "", nil, err
		}
		return result.Report, result.Links, nil
	default:
		slog.Warn("model requested unknown tool", "tool", call.Name)
		return "Unknown tool", nil, nil
	}
}

// webSearchTool is the single entry of the tool catalog exposed to the model.
func webSearchTool() llm.Tool {
	return llm.Tool{
		Name:        "web_search",
		Description: "Search the web for information",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

// buildPrompt deterministically formats the session and the section being
// edited into the opening user message.
func buildPrompt(ws *session.WritingSession, currentSectionID, currentContent string) string {
	var b strings.Builder

	b.WriteString("# Writing session\n")
	b.WriteString("topic: " + ws.Topic + "\n")
	if ws.TargetAudience != "" {
		b.WriteString("target audience: " + string(ws.TargetAudience) + "\n")
	}

	b.WriteString("\n# Outline\n")
	for _, sec := range ws.Outline {
		b.WriteString(strings.Repeat("#", sec.Level))
		b.WriteString(" " + sec.Title + " (" + sec.SectionID + ")\n")
	}

	b.WriteString("\n# Draft content\n")
	for _, id := range orderedSectionIDs(ws) {
		b.WriteString("## section " + id + "\n")
		b.WriteString(ws.Content[id] + "\n")
	}

	b.WriteString("\n# Section being edited\n")
	b.WriteString("section id: " + currentSectionID + "\n")
	b.WriteString("current text:\n" + currentContent + "\n")

	return b.String()
}

// orderedSectionIDs lists content keys in outline order, then any keys the
// outline does not mention in sorted order, so the prompt is deterministic.
func orderedSectionIDs(ws *session.WritingSession) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, sec := range ws.Outline {
		if _, ok := ws.Content[sec.SectionID]; ok && !seen[sec.SectionID] {
			seen[sec.SectionID] = true
			ids = append(ids, sec.SectionID)
		}
	}

	var rest []string
	for id := range ws.Content {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// sortByPriority applies the priority convention (ascending urgency) with a
// stable sort so suggestion_id order survives ties.
func sortByPriority(suggestions []Suggestion) []Suggestion {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	return suggestions
}
