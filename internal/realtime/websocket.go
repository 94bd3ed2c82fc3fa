package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/repairdesk/internal/agent"
	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/identity"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// clientFrame is a message from the browser.
type clientFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
}

// serverFrame is a message to the browser.
type serverFrame struct {
	Type     string                  `json:"type"`
	Snapshot *agent.SnapshotResponse `json:"snapshot,omitempty"`
	Message  *agent.MessageView      `json:"message,omitempty"`
	Event    *agent.Event            `json:"event,omitempty"`
	FormOpen *bool                   `json:"form_open,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// WebSocketHandler serves one chat session per socket: visitor frames in,
// appended messages and state changes out.
type WebSocketHandler struct {
	svc           *agent.Service
	conns         *ConnManager
	limiter       *agent.RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a chat socket handler. limiter may be nil.
func NewWebSocketHandler(svc *agent.Service, conns *ConnManager, limiter *agent.RateLimiter, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		conns:         conns,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("Chat socket request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.svc.Session(agent.SessionKey{UserID: userID, SessionID: sessionID})
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	snap := sess.Snapshot().View(h.location())
	if err := h.writeFrame(ctx, ws, serverFrame{Type: "snapshot", Snapshot: &snap}); err != nil {
		slog.Debug("Failed to send snapshot", "error", err, "user_id", userID)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, sess)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, sess, events, len(snap.Messages))
	}()

	wg.Wait()
	slog.Info("Chat socket ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) location() *time.Location {
	if loc := h.svc.Config().Location; loc != nil {
		return loc
	}
	return time.UTC
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, sess *agent.Session) {
	key := sess.Key()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", key.UserID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", key.UserID)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reportError(ctx, ws, "invalid frame")
			continue
		}

		switch frame.Type {
		case "message":
			if h.limiter != nil && !h.limiter.Allow(key.UserID) {
				h.reportError(ctx, ws, "rate limit exceeded")
				continue
			}
			sess.Submit(frame.Content)
		case "draft":
			sess.SetDraft(frame.Content)
		case "language":
			lang, err := domain.ParseLanguage(frame.Language)
			if err != nil {
				h.reportError(ctx, ws, err.Error())
				continue
			}
			sess.SetPreferredLanguage(lang)
		case "ping":
			if err := h.writeFrame(ctx, ws, serverFrame{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			h.reportError(ctx, ws, fmt.Sprintf("unknown frame type %q", frame.Type))
		}
	}
}

// outputLoop forwards session changes. The first sent log entries went out
// with the snapshot; later ones are sent in log order.
func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, sess *agent.Session, events <-chan agent.Event, sent int) {
	loc := h.location()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				if err := h.writeFrame(ctx, ws, serverFrame{Type: "closed"}); err != nil {
					slog.Debug("Failed to send closed frame", "error", err)
				}
				return
			}

			if ev.Kind == agent.EventLogChanged {
				msgs := sess.Messages()
				for _, m := range msgs[min(sent, len(msgs)):] {
					view := agent.NewMessageView(m, loc)
					if err := h.writeFrame(ctx, ws, serverFrame{Type: "message", Message: &view}); err != nil {
						slog.Debug("Failed to send message frame", "error", err)
						return
					}
				}
				sent = len(msgs)
				continue
			}

			frame := serverFrame{Type: "state", Event: &ev}
			if ev.Kind == agent.EventFormChanged {
				_, formOpen := sess.Form()
				frame.FormOpen = &formOpen
			}
			if err := h.writeFrame(ctx, ws, frame); err != nil {
				slog.Debug("Failed to send state frame", "error", err)
				return
			}
		}
	}
}

func (h *WebSocketHandler) reportError(ctx context.Context, ws *websocket.Conn, msg string) {
	if err := h.writeFrame(ctx, ws, serverFrame{Type: "error", Error: msg}); err != nil {
		slog.Debug("Failed to send error frame", "error", err)
	}
}

func (h *WebSocketHandler) writeFrame(ctx context.Context, ws *websocket.Conn, frame serverFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", frame.Type, err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
