package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ashureev/repairdesk/internal/api"
	"github.com/ashureev/repairdesk/internal/config"
	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/identity"
	"github.com/ashureev/repairdesk/internal/knowledge"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
	defaultMaxRequestBodySize = 1 << 20
	defaultKeepaliveInterval  = 10 * time.Second
	defaultRetryDelay         = 5 * time.Second
	defaultRateLimitRequests  = 20
	defaultRateLimitWindow    = time.Minute
)

// Handler serves the chat HTTP API and the SSE change stream.
type Handler struct {
	svc          *Service
	cfg          *config.Config
	rateLimiter  *RateLimiter
	eventCounter atomic.Int64
}

// NewHandler creates a chat handler. A nil cfg selects defaults.
func NewHandler(svc *Service, cfg *config.Config) *Handler {
	requests, window := defaultRateLimitRequests, defaultRateLimitWindow
	if cfg != nil {
		requests = cfg.RateLimit.RequestsPerWindow
		window = cfg.RateLimit.WindowDuration
	}
	return &Handler{
		svc:         svc,
		cfg:         cfg,
		rateLimiter: NewRateLimiter(requests, window),
	}
}

// RegisterRoutes registers chat routes. Requests must carry identity.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/", h.HandleSnapshot)
		r.Delete("/", h.HandleReset)
		r.Post("/messages", h.HandleSubmit)
		r.Put("/language", h.HandleLanguage)
		r.Get("/prompts", h.HandlePrompts)
		r.Post("/form", h.HandleOpenForm)
		r.Delete("/form", h.HandleCloseForm)
		r.Patch("/form", h.HandleFormField)
		r.Put("/form/evidence", h.HandleEvidence)
		r.Post("/form/submit", h.HandleSubmitForm)
		r.Get("/stream", h.HandleStream)
	})
}

// RateLimiter returns the submission limiter so other transports can share
// the same per-visitor budget.
func (h *Handler) RateLimiter() *RateLimiter {
	return h.rateLimiter
}

// Close releases handler resources. The service is owned by the caller.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
}

func (h *Handler) sessionKey(w http.ResponseWriter, r *http.Request) (SessionKey, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return SessionKey{}, false
	}
	return SessionKey{UserID: userID, SessionID: identity.SessionIDFromContext(r.Context())}, true
}

func (h *Handler) location() *time.Location {
	if loc := h.svc.Config().Location; loc != nil {
		return loc
	}
	return time.UTC
}

func (h *Handler) maxBodySize() int64 {
	if h.cfg != nil && h.cfg.SSE.MaxRequestBodySize > 0 {
		return h.cfg.SSE.MaxRequestBodySize
	}
	return defaultMaxRequestBodySize
}

// HandleSnapshot handles GET /api/chat. The first call starts and seeds
// the session.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, h.svc.Session(key).Snapshot().View(h.location()))
}

// HandleReset handles DELETE /api/chat.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	if !h.svc.ResetSession(r.Context(), key) {
		api.Error(w, http.StatusNotFound, "no active session")
		return
	}
	slog.Info("Chat session reset", "user_id", key.UserID, "session_id", key.SessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmit handles POST /api/chat/messages. The reply arrives later and
// is observed through the snapshot or the stream.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	if !h.rateLimiter.Allow(key.UserID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req ChatRequest
	if err := api.DecodeJSON(w, r, h.maxBodySize(), &req); err != nil {
		api.DecodeError(w, err)
		return
	}

	msg, accepted := h.svc.Session(key).Submit(req.Message)
	if !accepted {
		api.JSON(w, http.StatusOK, ChatResponse{Accepted: false})
		return
	}

	slog.Info("Chat message submitted",
		"user_id", key.UserID,
		"session_id", key.SessionID,
		"language", msg.Language,
		"message_length", len(msg.Content),
		"request_id", chiMiddleware.GetReqID(r.Context()),
	)
	view := NewMessageView(msg, h.location())
	api.JSON(w, http.StatusAccepted, ChatResponse{Accepted: true, Message: &view})
}

// HandleLanguage handles PUT /api/chat/language.
func (h *Handler) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	var req LanguageRequest
	if err := api.DecodeJSON(w, r, h.maxBodySize(), &req); err != nil {
		api.DecodeError(w, err)
		return
	}
	lang, err := domain.ParseLanguage(req.Language)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := h.svc.Session(key)
	if !sess.SetPreferredLanguage(lang) {
		api.Error(w, http.StatusConflict, "session closed")
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{
		"language":    string(lang),
		"placeholder": h.svc.Responder().Render(knowledge.KeyInputPlaceholder, lang, nil),
	})
}

// HandlePrompts handles GET /api/chat/prompts.
func (h *Handler) HandlePrompts(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, PromptsResponse{Prompts: knowledge.QuickPrompts()})
}

// HandleOpenForm handles POST /api/chat/form.
func (h *Handler) HandleOpenForm(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	sess := h.svc.Session(key)
	sess.OpenForm()
	h.writeForm(w, sess)
}

// HandleCloseForm handles DELETE /api/chat/form. Edits are discarded.
func (h *Handler) HandleCloseForm(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	sess := h.svc.Session(key)
	sess.CloseForm()
	h.writeForm(w, sess)
}

// HandleFormField handles PATCH /api/chat/form.
func (h *Handler) HandleFormField(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	var req FormFieldRequest
	if err := api.DecodeJSON(w, r, h.maxBodySize(), &req); err != nil {
		api.DecodeError(w, err)
		return
	}
	sess := h.svc.Session(key)
	if err := sess.SetFormField(domain.FormField(req.Field), req.Value); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrFormNotOpen) {
			status = http.StatusConflict
		}
		api.Error(w, status, err.Error())
		return
	}
	h.writeForm(w, sess)
}

// HandleEvidence handles PUT /api/chat/form/evidence.
func (h *Handler) HandleEvidence(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	var req EvidenceRequest
	if err := api.DecodeJSON(w, r, h.maxBodySize(), &req); err != nil {
		api.DecodeError(w, err)
		return
	}
	sess := h.svc.Session(key)
	if !sess.SetEvidence(req.References) {
		api.Error(w, http.StatusConflict, "form is not open")
		return
	}
	h.writeForm(w, sess)
}

// HandleSubmitForm handles POST /api/chat/form/submit.
func (h *Handler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}
	request, summary, submitted := h.svc.Session(key).SubmitForm()
	if !submitted {
		api.Error(w, http.StatusConflict, "form is not open")
		return
	}
	loc := h.location()
	reqView, sumView := NewMessageView(request, loc), NewMessageView(summary, loc)
	api.JSON(w, http.StatusCreated, FormSubmitResponse{
		Submitted: true,
		Request:   &reqView,
		Summary:   &sumView,
	})
}

func (h *Handler) writeForm(w http.ResponseWriter, sess *Session) {
	form, open := sess.Form()
	resp := map[string]interface{}{"form_open": open}
	if open {
		resp["form"] = form
	}
	api.JSON(w, http.StatusOK, resp)
}

// HandleStream handles GET /api/chat/stream: a snapshot event on connect,
// then one event per session change, with keepalive pings.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	retryDelay := defaultRetryDelay
	keepaliveInterval := defaultKeepaliveInterval
	if h.cfg != nil && h.cfg.SSE.RetryDelay > 0 {
		retryDelay = h.cfg.SSE.RetryDelay
	}
	if h.cfg != nil && h.cfg.SSE.KeepaliveInterval > 0 {
		keepaliveInterval = h.cfg.SSE.KeepaliveInterval
	}
	if _, err := io.WriteString(w, fmt.Sprintf("retry: %d\n\n", retryDelay.Milliseconds())); err != nil {
		slog.Warn("failed to write SSE retry header", "error", err, "user_id", key.UserID)
		return
	}

	sess := h.svc.Session(key)
	events, cancel := sess.Subscribe()
	defer cancel()

	if err := h.writeEvent(w, "snapshot", sess.Snapshot().View(h.location())); err != nil {
		slog.Warn("failed to write SSE snapshot", "error", err, "user_id", key.UserID)
		return
	}
	flusher.Flush()

	slog.Info("Chat stream connected", "user_id", key.UserID, "session_id", key.SessionID)
	defer slog.Info("Chat stream closed", "user_id", key.UserID, "session_id", key.SessionID)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				if err := writeSSE(w, "closed", `{"status":"closed"}`); err == nil {
					flusher.Flush()
				}
				return
			}
			if err := h.writeEvent(w, string(ev.Kind), ev); err != nil {
				slog.Warn("failed to write SSE event", "error", err, "user_id", key.UserID, "kind", ev.Kind)
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "user_id", key.UserID)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeEvent(w io.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return writeSSEWithID(w, h.eventCounter.Add(1), event, string(data))
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id int64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
