package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktsujino/zenn-assist/llm"
)

// RelatedLink is one cited source collected during web search.
type RelatedLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WebSearchResult is the sub-agent's report plus the links it cited.
type WebSearchResult struct {
	Report string
	Links  []RelatedLink
}

// Searcher is the capability the suggestion agent depends on for the
// web_search tool. Stubs substitute for the real sub-agent in tests.
type Searcher interface {
	Search(ctx context.Context, query string) (*WebSearchResult, error)
}

const webSearchSystemPrompt = `You are a web search and reporting agent. A parent agent hands you a search
instruction; use the web search tool to find what it asks for and report the
findings back concisely in markdown. Shorten the report whenever a shorter
version still carries the answer.`

// WebSearchAgent drives one model exchange with the vendor-native web search
// capability enabled. It holds no state across calls and never retries.
type WebSearchAgent struct {
	client  llm.Client
	maxUses int
}

var _ Searcher = (*WebSearchAgent)(nil)

// NewWebSearchAgent creates a web search sub-agent on top of client.
func NewWebSearchAgent(client llm.Client, maxUses int) *WebSearchAgent {
	return &WebSearchAgent{client: client, maxUses: maxUses}
}

// Search performs exactly one model turn and extracts the report and cited
// links. The turn must end normally; any other stop reason is a protocol
// failure of this sub-agent.
func (a *WebSearchAgent) Search(ctx context.Context, query string) (*WebSearchResult, error) {
	slog.Info("web search sub-agent called", "query", query)

	turn, err := a.client.Converse(ctx, llm.Request{
		System:    webSearchSystemPrompt,
		WebSearch: &llm.WebSearchOption{MaxUses: a.maxUses},
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("search query from parent agent: %s", query)},
		},
	})
	if err != nil {
		return nil, err
	}

	if turn.StopReason != llm.StopEndTurn {
		return nil, &ProtocolError{
			Agent:      "web_search",
			Endpoint:   "/assist",
			StopReason: string(turn.StopReason),
			Message:    "turn did not end normally",
		}
	}

	if turn.Text == "" {
		return nil, &ProtocolError{
			Agent:    "web_search",
			Endpoint: "/assist",
			Message:  "response text not found",
		}
	}

	return &WebSearchResult{
		Report: turn.Text,
		Links:  dedupeLinks(turn.SearchResults),
	}, nil
}

// dedupeLinks keeps the first occurrence of each URL, preserving emission
// order.
func dedupeLinks(results []llm.SearchResult) []RelatedLink {
	seen := make(map[string]bool, len(results))
	var links []RelatedLink
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		links = append(links, RelatedLink{Title: r.Title, URL: r.URL})
	}
	return links
}
