// Package api provides the HTTP handlers for the writing-assistant API.
package api

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ktsujino/zenn-assist/agent"
	"github.com/ktsujino/zenn-assist/llm"
	"github.com/ktsujino/zenn-assist/service"
	"github.com/ktsujino/zenn-assist/session"
	"github.com/ktsujino/zenn-assist/zenn"
)

// Handler exposes the assist, generate and publish endpoints.
type Handler struct {
	suggest   *service.SuggestService
	store     session.Store
	generator *zenn.GenerateService
	publisher *zenn.PublishService
	writer    *zenn.Writer
}

// NewHandler creates a Handler with its service dependencies. generator,
// publisher and writer may be nil when the Zenn workflow is not configured.
func NewHandler(suggest *service.SuggestService, store session.Store, generator *zenn.GenerateService, publisher *zenn.PublishService, writer *zenn.Writer) *Handler {
	return &Handler{
		suggest:   suggest,
		store:     store,
		generator: generator,
		publisher: publisher,
		writer:    writer,
	}
}

// Routes mounts all endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Route("/assist", func(r chi.Router) {
		r.Post("/begin", h.createSession)
		r.Post("/update", h.updateSession)
		r.Post("/suggest", h.generateSuggestion)
	})
	r.Post("/generate", h.generateArticle)
	r.Post("/generate/ai", h.generateArticleAI)
	r.Post("/publish", h.publishArticle)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	Topic          string           `json:"topic"`
	TargetAudience session.Audience `json:"target_audience,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Topic == "" {
		Error(w, http.StatusBadRequest, "topic is required")
		return
	}
	if !req.TargetAudience.Valid() {
		Error(w, http.StatusBadRequest, "unknown target_audience")
		return
	}

	status, err := h.suggest.CreateSession(r.Context(), req.Topic, req.TargetAudience)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	var ws session.WritingSession
	if err := decodeBody(r, &ws); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if ws.SessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if !ws.TargetAudience.Valid() {
		Error(w, http.StatusBadRequest, "unknown target_audience")
		return
	}

	status, err := h.suggest.UpdateSession(r.Context(), &ws)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

type suggestRequest struct {
	service.SuggestionRequest
	WritingSession session.WritingSession `json:"writing_session"`
}

func (h *Handler) generateSuggestion(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" || req.CurrentSectionID == "" {
		Error(w, http.StatusBadRequest, "session_id and current_section_id are required")
		return
	}

	resp, err := h.suggest.GenerateSuggestion(r.Context(), req.SuggestionRequest, &req.WritingSession)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) generateArticle(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		Error(w, http.StatusNotImplemented, "article generation is not configured")
		return
	}
	var req zenn.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" {
		Error(w, http.StatusBadRequest, "title is required")
		return
	}

	slug, err := h.generator.GenerateArticle(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, zenn.GeneratedResponse{Status: "created", Slug: slug})
}

func (h *Handler) generateArticleAI(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil || h.writer == nil {
		Error(w, http.StatusNotImplemented, "AI article generation is not configured")
		return
	}
	var req zenn.AIGenerateRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	generated, err := h.writer.WriteArticle(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slug, err := h.generator.GenerateArticle(r.Context(), *generated)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, zenn.GeneratedResponse{Status: "created", Slug: slug})
}

func (h *Handler) publishArticle(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		Error(w, http.StatusNotImplemented, "publishing is not configured")
		return
	}
	var req zenn.PublishRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Slug == "" {
		Error(w, http.StatusBadRequest, "slug is required")
		return
	}

	resp, err := h.publisher.PublishArticle(r.Context(), req.Slug)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDomainError maps typed domain failures onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound   *session.NotFoundError
		conflict   *session.ConflictError
		validation *agent.ValidationError
		protocol   *agent.ProtocolError
		turnLimit  *agent.TurnLimitError
		transport  *llm.TransportError
		publish    *zenn.PublishError
	)

	switch {
	case stderrors.As(err, &notFound):
		Error(w, http.StatusNotFound, err.Error())
	case stderrors.As(err, &conflict):
		Error(w, http.StatusConflict, err.Error())
	case stderrors.As(err, &validation), stderrors.As(err, &protocol), stderrors.As(err, &transport):
		Error(w, http.StatusBadGateway, err.Error())
	case stderrors.As(err, &turnLimit):
		Error(w, http.StatusBadGateway, err.Error())
	case stderrors.As(err, &publish):
		code := publish.StatusCode
		if code == 0 {
			code = http.StatusInternalServerError
		}
		Error(w, code, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
