// Package identity provides anonymous per-device visitor identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	VisitorCookieName     = "repairdesk_visitor"
	SessionHeaderName     = "X-Repairdesk-Session-ID"
	DefaultSessionIDValue = "default"
	visitorCookieMaxAge   = 30 * 24 * time.Hour
)

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

var (
	visitorIDPattern = regexp.MustCompile(`^visitor_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserIDFromContext extracts the visitor ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithIdentity returns a context carrying the given identity. Useful for
// callers outside the HTTP middleware chain, such as tests.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func generateVisitorID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate visitor id: %w", err)
	}
	return "visitor_" + hex.EncodeToString(buf), nil
}

func isValidVisitorID(id string) bool {
	return visitorIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) || strings.Trim(id, ".") == "" {
		return DefaultSessionIDValue
	}
	return id
}

func visitorCookie(id string, isDev bool) *http.Cookie {
	return &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(visitorCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	}
}

// getOrCreateVisitorID reuses a valid cookie (refreshing its expiry) or
// issues a new one.
func getOrCreateVisitorID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(VisitorCookieName); err == nil && isValidVisitorID(c.Value) {
		http.SetCookie(w, visitorCookie(c.Value, isDev))
		return c.Value, nil
	}

	id, err := generateVisitorID()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, visitorCookie(id, isDev))
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware injects the visitor ID and per-tab session ID.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := getOrCreateVisitorID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish visitor identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
