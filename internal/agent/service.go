package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Service owns the live chat sessions, keyed by visitor and tab.
type Service struct {
	cfg       Config
	responder *Responder
	logger    *slog.Logger
	log       ConversationLogger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a session registry. A nil responder uses the built-in
// script; a nil conversation logger disables transcripts.
func NewService(cfg Config, responder *Responder, logger *slog.Logger, convLog ConversationLogger) *Service {
	if responder == nil {
		responder = NewResponder(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	return &Service{
		cfg:       cfg,
		responder: responder,
		logger:    logger,
		log:       convLog,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the session for key, starting one if needed.
func (s *Service) Session(key SessionKey) *Session {
	id := key.String()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = NewSession(key, s.responder, s.cfg, s.logger, s.log)
	s.sessions[id] = sess
	return sess
}

// Lookup returns an existing session without creating one.
func (s *Service) Lookup(key SessionKey) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key.String()]
	return sess, ok
}

// Keys returns the keys of the live sessions.
func (s *Service) Keys() []SessionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]SessionKey, 0, len(s.sessions))
	for _, sess := range s.sessions {
		keys = append(keys, sess.Key())
	}
	return keys
}

// ResetSession tears down a session, discarding pending replies. It reports
// whether a session existed.
func (s *Service) ResetSession(_ context.Context, key SessionKey) bool {
	s.mu.Lock()
	sess, ok := s.sessions[key.String()]
	delete(s.sessions, key.String())
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
	return ok
}

// CloseIdle tears down sessions idle for longer than ttl and returns how
// many were closed.
func (s *Service) CloseIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	return len(expired)
}

// Responder returns the shared reply generator.
func (s *Service) Responder() *Responder {
	return s.responder
}

// Config returns the agent configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// GetStats returns agent statistics.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{
		ActiveSessions: len(s.sessions),
		TopicCount:     len(s.responder.base.Topics()),
	}
	for _, sess := range s.sessions {
		stats.PendingReplies += sess.PendingReplies()
	}
	return stats
}

// Close tears down every session and flushes the transcript logger.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	if err := s.log.Close(); err != nil {
		s.logger.Warn("failed to close conversation logger", "error", err)
	}
}

// HealthStats reports stats for the health endpoint.
func (s *Service) HealthStats() map[string]int {
	stats := s.GetStats()
	return map[string]int{
		"active_sessions": stats.ActiveSessions,
		"pending_replies": stats.PendingReplies,
		"topics":          stats.TopicCount,
	}
}
