package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ktsujino/zenn-assist/agent"
	"github.com/ktsujino/zenn-assist/service"
	"github.com/ktsujino/zenn-assist/session"
)

// memStore is a minimal in-memory session.Store for handler tests.
type memStore struct {
	sessions map[string]*session.WritingSession
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*session.WritingSession)}
}

func (m *memStore) Create(_ context.Context, topic string, audience session.Audience) (string, error) {
	m.nextID++
	id := fmt.Sprintf("sess-%d", m.nextID)
	m.sessions[id] = &session.WritingSession{SessionID: id, Topic: topic, TargetAudience: audience, Content: map[string]string{}}
	return id, nil
}

func (m *memStore) Get(_ context.Context, id string) (*session.WritingSession, error) {
	ws, ok := m.sessions[id]
	if !ok {
		return nil, &session.NotFoundError{SessionID: id}
	}
	copied := *ws
	return &copied, nil
}

func (m *memStore) Update(_ context.Context, ws *session.WritingSession) error {
	if _, ok := m.sessions[ws.SessionID]; !ok {
		return &session.NotFoundError{SessionID: ws.SessionID}
	}
	copied := *ws
	m.sessions[ws.SessionID] = &copied
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

// stubGenerator returns a fixed response or error.
type stubGenerator struct {
	resp *agent.SuggestionResponse
	err  error
}

func (g *stubGenerator) GenerateSuggestion(context.Context, *session.WritingSession, string, string) (*agent.SuggestionResponse, error) {
	return g.resp, g.err
}

func newTestRouter(store session.Store, generator service.SuggestionGenerator) http.Handler {
	suggest := service.NewSuggestService(store, generator)
	h := NewHandler(suggest, store, nil, nil, nil)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateSessionEndpoint(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	rec := postJSON(t, router, "/assist/begin", map[string]string{"topic": "Go testing"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var status service.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != service.StatusSuccess || status.SessionID == "" {
		t.Errorf("status = %+v", status)
	}
}

func TestCreateSessionPersistsAudience(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, &stubGenerator{})

	rec := postJSON(t, router, "/assist/begin", map[string]string{
		"topic":           "t",
		"target_audience": "beginner",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var status service.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	ws, err := store.Get(context.Background(), status.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if ws.TargetAudience != session.AudienceBeginner {
		t.Errorf("audience = %q, want beginner", ws.TargetAudience)
	}
}

func TestCreateSessionRequiresTopic(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	rec := postJSON(t, router, "/assist/begin", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCreateSessionRejectsUnknownAudience(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	rec := postJSON(t, router, "/assist/begin", map[string]string{
		"topic":           "t",
		"target_audience": "wizard",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestUpdateSessionEndpoint(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "t", "")
	router := newTestRouter(store, &stubGenerator{})

	rec := postJSON(t, router, "/assist/update", map[string]interface{}{
		"session_id":      id,
		"topic":           "revised",
		"target_audience": "beginner",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var status service.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != service.StatusSuccess {
		t.Errorf("status = %+v", status)
	}
}

func TestUpdateSessionUnknownIDReportsFail(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	rec := postJSON(t, router, "/assist/update", map[string]interface{}{
		"session_id": "ghost",
		"topic":      "t",
	})
	// A missing session on update is a fail outcome, not an HTTP error.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var status service.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != service.StatusFail {
		t.Errorf("status = %+v", status)
	}
}

func TestGenerateSuggestionEndpoint(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "t", "")
	generator := &stubGenerator{resp: &agent.SuggestionResponse{
		Suggestions: []agent.Suggestion{
			{SuggestionID: "1", Type: "content", Title: "Add examples", Priority: 1},
		},
		SummaryReport: "looks good",
	}}
	router := newTestRouter(store, generator)

	rec := postJSON(t, router, "/assist/suggest", map[string]interface{}{
		"session_id":         id,
		"current_section_id": "s1",
		"current_content":    "draft",
		"writing_session": map[string]interface{}{
			"session_id": id,
			"topic":      "t",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp agent.SuggestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Suggestions) != 1 || resp.SummaryReport != "looks good" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGenerateSuggestionUnknownSessionIs404(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	rec := postJSON(t, router, "/assist/suggest", map[string]interface{}{
		"session_id":         "ghost",
		"current_section_id": "s1",
		"writing_session":    map[string]interface{}{"session_id": "ghost"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestGenerateSuggestionAgentFailureIs502(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "t", "")
	generator := &stubGenerator{err: &agent.TurnLimitError{Limit: 10}}
	router := newTestRouter(store, generator)

	rec := postJSON(t, router, "/assist/suggest", map[string]interface{}{
		"session_id":         id,
		"current_section_id": "s1",
		"writing_session":    map[string]interface{}{"session_id": id},
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestZennEndpointsUnconfigured(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubGenerator{})

	for _, path := range []string{"/generate", "/generate/ai", "/publish"} {
		rec := postJSON(t, router, path, map[string]string{})
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}
