package agent

import (
	"encoding/json"
	"strings"

	"github.com/ktsujino/zenn-assist/errors"
)

// parseSuggestionPayload strictly parses the model's final text against the
// suggestion payload contract. Any deviation fails; the loop never repairs
// or retries a malformed final answer.
func parseSuggestionPayload(text string) (*suggestionPayload, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var payload suggestionPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrapf(err, "final text is not valid suggestion JSON")
	}
	// Trailing garbage after the JSON object also violates the contract.
	if dec.More() {
		return nil, errors.New("trailing data after suggestion JSON object")
	}

	if payload.Suggestions == nil {
		return nil, errors.New("missing required field 'suggestions'")
	}
	for i, s := range payload.Suggestions {
		if s.SuggestionID == "" {
			return nil, errors.New("suggestion %d: missing suggestion_id", i)
		}
		switch s.Type {
		case "structure", "content", "improvement":
		default:
			return nil, errors.New("suggestion %d: unknown type %q", i, s.Type)
		}
		if s.Title == "" {
			return nil, errors.New("suggestion %d: missing title", i)
		}
	}

	return &payload, nil
}
