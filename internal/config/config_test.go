package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Chat.ReplyDelay != 600*time.Millisecond {
		t.Errorf("expected default reply delay 600ms, got %v", cfg.Chat.ReplyDelay)
	}
	if cfg.Chat.SessionTTL != time.Hour {
		t.Errorf("expected default session ttl 1h, got %v", cfg.Chat.SessionTTL)
	}
	if cfg.RateLimit.RequestsPerWindow != 20 || cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.SSE.MaxRequestBodySize != 1<<20 {
		t.Errorf("expected 1MB body limit, got %d", cfg.SSE.MaxRequestBodySize)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("expected UTC location, got %s", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPLY_DELAY", "50ms")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("RATE_LIMIT_REQUESTS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TIMEZONE", "Africa/Johannesburg")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")
	t.Setenv("CONVERSATION_LOG_QUEUE_SIZE", "-4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Chat.ReplyDelay != 50*time.Millisecond {
		t.Errorf("expected reply delay 50ms, got %v", cfg.Chat.ReplyDelay)
	}
	if cfg.Chat.SessionTTL != 10*time.Minute {
		t.Errorf("expected session ttl 10m, got %v", cfg.Chat.SessionTTL)
	}
	if cfg.RateLimit.RequestsPerWindow != 3 {
		t.Errorf("expected 3 requests per window, got %d", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.Location.String() != "Africa/Johannesburg" {
		t.Errorf("expected SAST location, got %s", cfg.Location)
	}
	if cfg.ConversationLog.Enabled {
		t.Error("expected conversation log disabled")
	}
	if cfg.ConversationLog.QueueSize != 1000 {
		t.Errorf("expected queue size fallback 1000, got %d", cfg.ConversationLog.QueueSize)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"LOG_LEVEL":             "chatty",
		"TIMEZONE":              "Mars/Olympus_Mons",
		"PORT":                  "",
		"RATE_LIMIT_REQUESTS":   "0",
		"REPLY_DELAY":           "600",
		"SESSION_TTL":           "an hour",
		"RATE_LIMIT_WINDOW":     "1 minute",
		"SSE_RETRY_DELAY":       "5x",
		"MAX_REQUEST_BODY_SIZE": "1MB",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "info")
			t.Setenv("TIMEZONE", "UTC")
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REPLY_DELAY", "600")
	t.Setenv("SESSION_TTL", "1hr")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for malformed durations")
	}
	for _, key := range []string{"REPLY_DELAY", "SESSION_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to name %s, got %v", key, err)
		}
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg := &Config{FrontendURL: "http://localhost:5173"}
	if !cfg.IsDevelopment() {
		t.Error("expected localhost frontend to be development")
	}
	cfg.FrontendURL = "https://desk.example.com/"
	if cfg.IsDevelopment() {
		t.Error("expected public frontend to be production")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "https://desk.example.com" {
		t.Errorf("unexpected allowed origins %v", got)
	}
}
