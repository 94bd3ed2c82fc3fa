package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/repairdesk/internal/config"
	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/identity"
)

type chatServer struct {
	svc     *Service
	handler *Handler
	router  chi.Router
}

func newChatServer(t *testing.T, cfg *config.Config) *chatServer {
	t.Helper()
	agentCfg := DefaultConfig()
	agentCfg.ReplyDelay = 5 * time.Millisecond
	svc := NewService(agentCfg, nil, nil, nil)
	h := NewHandler(svc, cfg)
	t.Cleanup(func() {
		h.Close()
		svc.Close()
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := req.Header.Get("X-Test-User")
			if user == "" {
				next.ServeHTTP(w, req)
				return
			}
			ctx := identity.WithIdentity(req.Context(), user, req.Header.Get(identity.SessionHeaderName))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.RegisterRoutes(r)
	return &chatServer{svc: svc, handler: h, router: r}
}

func (c *chatServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("X-Test-User", "visitor-1")
	req.Header.Set(identity.SessionHeaderName, "tab-1")
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestHandlerRequiresIdentity(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerSnapshotSeedsSession(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodGet, "/api/chat", "")
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeBody[SnapshotResponse](t, w)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, domain.LanguageEnglish, snap.Language)
	assert.False(t, snap.Busy)
	assert.NotEmpty(t, snap.Messages[0].DisplayTime)
	assert.NotEmpty(t, snap.Placeholder)
}

func TestHandlerSubmitAndReply(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"Can I get a quote?"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeBody[ChatResponse](t, w)
	require.True(t, resp.Accepted)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "Can I get a quote?", resp.Message.Content)

	sess, ok := c.svc.Lookup(SessionKey{UserID: "visitor-1", SessionID: "tab-1"})
	require.True(t, ok)
	require.Eventually(t, func() bool { return len(sess.Messages()) == 4 }, waitFor, tick)

	w = c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[ChatResponse](t, w).Accepted)

	w = c.do(t, http.MethodPost, "/api/chat/messages", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerRateLimitsSubmissions(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Hour},
	})

	for i := 0; i < 2; i++ {
		w := c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"Hi there"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
	}
	w := c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"Hi there"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHandlerRateLimitIsSharedPerVisitor(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Hour},
	})

	limiter := c.handler.RateLimiter()
	require.True(t, limiter.Allow("visitor-1"))

	w := c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"Hi there"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.False(t, limiter.Allow("visitor-1"))
	assert.True(t, limiter.Allow("visitor-2"))
}

func TestHandlerLanguage(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodPut, "/api/chat/language", `{"language":"af-ZA"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]string](t, w)
	assert.Equal(t, "af", body["language"])

	w = c.do(t, http.MethodPut, "/api/chat/language", `{"language":"klingon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	snap := decodeBody[SnapshotResponse](t, c.do(t, http.MethodGet, "/api/chat", ""))
	assert.Equal(t, domain.LanguageAfrikaans, snap.Language)
}

func TestHandlerPrompts(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodGet, "/api/chat/prompts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[PromptsResponse](t, w).Prompts, 4)
}

func TestHandlerFormLifecycle(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodPatch, "/api/chat/form", `{"field":"year","value":"2021"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(t, http.MethodPost, "/api/chat/form", "")
	require.Equal(t, http.StatusOK, w.Code)

	for _, body := range []string{
		`{"field":"vehicle_make","value":"Toyota"}`,
		`{"field":"vehicle_model","value":"Hilux"}`,
		`{"field":"year","value":"2021"}`,
		`{"field":"preferred_contact","value":"WhatsApp"}`,
	} {
		w = c.do(t, http.MethodPatch, "/api/chat/form", body)
		require.Equal(t, http.StatusOK, w.Code, body)
	}

	w = c.do(t, http.MethodPatch, "/api/chat/form", `{"field":"colour","value":"red"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodPut, "/api/chat/form/evidence", `{"references":["a.jpg","b.jpg","c.jpg","d.jpg","e.jpg","f.jpg"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	formResp := decodeBody[struct {
		FormOpen bool              `json:"form_open"`
		Form     domain.IntakeForm `json:"form"`
	}](t, w)
	assert.True(t, formResp.FormOpen)
	assert.Len(t, formResp.Form.Evidence, domain.MaxEvidence)

	w = c.do(t, http.MethodPost, "/api/chat/form/submit", "")
	require.Equal(t, http.StatusCreated, w.Code)
	submitted := decodeBody[FormSubmitResponse](t, w)
	require.NotNil(t, submitted.Request)
	require.NotNil(t, submitted.Summary)
	assert.Equal(t, "Estimate request submitted for Toyota Hilux (2021).", submitted.Request.Content)
	assert.Contains(t, submitted.Summary.Content, "Expect a call via WhatsApp")

	w = c.do(t, http.MethodPost, "/api/chat/form/submit", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	c.do(t, http.MethodPost, "/api/chat/form", "")
	w = c.do(t, http.MethodDelete, "/api/chat/form", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"form_open": false}, decodeBody[map[string]interface{}](t, w))
}

func TestHandlerReset(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, nil)

	w := c.do(t, http.MethodDelete, "/api/chat", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	c.do(t, http.MethodGet, "/api/chat", "")
	w = c.do(t, http.MethodDelete, "/api/chat", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, c.svc.GetStats().ActiveSessions)
}

func TestHandlerStream(t *testing.T) {
	t.Parallel()
	c := newChatServer(t, &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute},
		SSE:       config.SSEConfig{KeepaliveInterval: time.Hour, RetryDelay: time.Second, MaxRequestBodySize: 1 << 10},
	})
	srv := httptest.NewServer(c.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/chat/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-Test-User", "visitor-1")
	req.Header.Set(identity.SessionHeaderName, "tab-1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()

	next := func() string {
		select {
		case name, ok := <-events:
			require.True(t, ok, "stream closed early")
			return name
		case <-ctx.Done():
			t.Fatal("timed out waiting for SSE event")
			return ""
		}
	}

	require.Equal(t, "snapshot", next())

	w := c.do(t, http.MethodPost, "/api/chat/messages", `{"message":"Hi there"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, string(EventLogChanged), next())
	assert.Equal(t, string(EventBusyChanged), next())
	assert.Equal(t, string(EventLogChanged), next())
	assert.Equal(t, string(EventBusyChanged), next())

	w = c.do(t, http.MethodDelete, "/api/chat", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "closed", next())
}
