// Package service glues the session store and the suggestion agent behind
// the use cases the HTTP layer exposes.
package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/ktsujino/zenn-assist/agent"
	"github.com/ktsujino/zenn-assist/session"
)

// Status reports the outcome of a session mutation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// SessionStatus is the value object returned for create/update calls.
type SessionStatus struct {
	Status    Status `json:"status"`
	SessionID string `json:"session_id,omitempty"`
}

// SuggestionRequest identifies the session and the section being edited.
type SuggestionRequest struct {
	SessionID        string `json:"session_id"`
	CurrentSectionID string `json:"current_section_id"`
	CurrentContent   string `json:"current_content"`
}

// SuggestionGenerator is the agent capability the service composes with.
type SuggestionGenerator interface {
	GenerateSuggestion(ctx context.Context, ws *session.WritingSession, currentSectionID, currentContent string) (*agent.SuggestionResponse, error)
}

// SuggestService coordinates the session store and the suggestion agent.
type SuggestService struct {
	store session.Store
	agent SuggestionGenerator
}

// NewSuggestService wires a store and a suggestion agent together.
func NewSuggestService(store session.Store, generator SuggestionGenerator) *SuggestService {
	return &SuggestService{store: store, agent: generator}
}

// CreateSession starts a new writing session from the topic and optional
// target audience.
func (s *SuggestService) CreateSession(ctx context.Context, topic string, audience session.Audience) (SessionStatus, error) {
	id, err := s.store.Create(ctx, topic, audience)
	if err != nil {
		return SessionStatus{Status: StatusFail}, err
	}
	return SessionStatus{Status: StatusSuccess, SessionID: id}, nil
}

// UpdateSession overwrites the stored session with the client's copy. A
// missing session is reported as a fail status rather than an error; this is
// the boundary where "not found" becomes a reportable outcome. Other store
// failures still propagate.
func (s *SuggestService) UpdateSession(ctx context.Context, ws *session.WritingSession) (SessionStatus, error) {
	if err := s.store.Update(ctx, ws); err != nil {
		var notFound *session.NotFoundError
		if stderrors.As(err, &notFound) {
			slog.Warn("update for unknown session", "session_id", ws.SessionID)
			return SessionStatus{Status: StatusFail, SessionID: ws.SessionID}, nil
		}
		return SessionStatus{Status: StatusFail, SessionID: ws.SessionID}, err
	}
	return SessionStatus{Status: StatusSuccess, SessionID: ws.SessionID}, nil
}

// GenerateSuggestion first persists the client-submitted draft (the source
// of truth for this request), then re-fetches the canonical session and runs
// the agent against it. The write-then-read round-trip is deliberate: the
// agent always sees the store's canonical representation.
func (s *SuggestService) GenerateSuggestion(ctx context.Context, req SuggestionRequest, ws *session.WritingSession) (*agent.SuggestionResponse, error) {
	if _, err := s.UpdateSession(ctx, ws); err != nil {
		return nil, err
	}

	canonical, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	return s.agent.GenerateSuggestion(ctx, canonical, req.CurrentSectionID, req.CurrentContent)
}
