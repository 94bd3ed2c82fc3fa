package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareIssuesVisitorCookie(t *testing.T) {
	var gotUser, gotSession string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !isValidVisitorID(gotUser) {
		t.Fatalf("expected generated visitor id, got %q", gotUser)
	}
	if gotSession != DefaultSessionIDValue {
		t.Errorf("expected default session id, got %q", gotSession)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != VisitorCookieName || cookies[0].Value != gotUser {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	const id = "visitor_0123456789abcdef0123456789abcdef"
	var gotUser string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser != id {
		t.Errorf("expected cookie visitor id %q, got %q", id, gotUser)
	}
}

func TestSessionIDFromHeaderAndQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/chat?session_id=tab-query", nil)
	if got := sessionIDFromRequest(req); got != "tab-query" {
		t.Errorf("expected query session id, got %q", got)
	}

	req.Header.Set(SessionHeaderName, "tab-header")
	if got := sessionIDFromRequest(req); got != "tab-header" {
		t.Errorf("expected header to win, got %q", got)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := map[string]string{
		"":            DefaultSessionIDValue,
		"  tab-1  ":   "tab-1",
		"..":          DefaultSessionIDValue,
		"bad/slash":   DefaultSessionIDValue,
		"tab:2.alpha": "tab:2.alpha",
	}
	for in, want := range tests {
		if got := sanitizeSessionID(in); got != want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}
