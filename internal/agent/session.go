package agent

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/knowledge"
)

// SessionKey identifies a conversation: one visitor, one browser tab.
type SessionKey struct {
	UserID    string
	SessionID string
}

func (k SessionKey) String() string {
	return k.UserID + ":" + k.SessionID
}

// pendingReply is a scheduled answer to one accepted submission.
type pendingReply struct {
	submissionID string
	utterance    string
	lang         domain.Language
	timer        *time.Timer
	reply        *Reply
}

// Session is one in-memory conversation. All mutations go through mu, so
// appends are atomic and messages are fully built before they are visible.
type Session struct {
	key       SessionKey
	responder *Responder
	cfg       Config
	logger    *slog.Logger
	log       ConversationLogger
	now       func() time.Time

	mu         sync.Mutex
	messages   []domain.Message
	language   domain.Language
	draft      string
	pending    []*pendingReply
	formOpen   bool
	form       domain.IntakeForm
	subs       map[int]chan Event
	nextSubID  int
	closed     bool
	lastActive time.Time
}

// NewSession starts a conversation seeded with the two greetings: the
// rendered welcome in the primary language, then the bilingual note.
func NewSession(key SessionKey, responder *Responder, cfg Config, logger *slog.Logger, convLog ConversationLogger) *Session {
	if responder == nil {
		responder = NewResponder(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	s := &Session{
		key:       key,
		responder: responder,
		cfg:       cfg,
		logger:    logger,
		log:       convLog,
		now:       time.Now,
		language:  domain.PrimaryLanguage,
		form:      domain.DefaultIntakeForm(),
		subs:      make(map[int]chan Event),
	}

	started := s.now()
	s.lastActive = started
	s.mu.Lock()
	s.appendLocked(domain.NewMessage(domain.RoleAssistant,
		responder.Render(knowledge.KeyWelcome, domain.PrimaryLanguage, nil),
		domain.PrimaryLanguage, started, map[string]string{"rule": "welcome"}))
	s.appendLocked(domain.NewMessage(domain.RoleAssistant,
		bilingualNote, domain.SecondaryLanguage, started, map[string]string{"rule": "welcome"}))
	s.mu.Unlock()

	logger.Info("Chat session started", "user_id", key.UserID, "session_id", key.SessionID)
	return s
}

// Key returns the session's identity.
func (s *Session) Key() SessionKey {
	return s.key
}

// Submit accepts a user utterance. Whitespace-only input is ignored and
// reported as not accepted. The reply is appended after the configured
// delay without blocking the caller.
func (s *Session) Submit(text string) (domain.Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, false
	}
	lang := knowledge.DetectLanguage(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Message{}, false
	}

	msg := domain.NewMessage(domain.RoleUser, text, lang, s.now(), nil)
	s.appendLocked(msg)
	s.draft = ""
	s.touchLocked()

	languageChanged := s.language != lang
	s.language = lang
	wasBusy := len(s.pending) > 0

	p := &pendingReply{submissionID: msg.ID, utterance: text, lang: lang}
	s.pending = append(s.pending, p)
	p.timer = time.AfterFunc(s.cfg.ReplyDelay, func() { s.completeReply(p) })

	s.emitLocked(EventLogChanged)
	if languageChanged {
		s.emitLocked(EventLanguageChanged)
	}
	if !wasBusy {
		s.emitLocked(EventBusyChanged)
	}

	s.logger.Debug("Chat message accepted",
		"user_id", s.key.UserID,
		"session_id", s.key.SessionID,
		"language", lang,
		"pending", len(s.pending),
	)
	return msg.Clone(), true
}

// SetDraft stores the visitor's unsent input.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// Draft returns the unsent input.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SubmitDraft submits the stored draft.
func (s *Session) SubmitDraft() (domain.Message, bool) {
	return s.Submit(s.Draft())
}

// completeReply runs on the timer goroutine. Replies are appended in
// submission order: a finished reply waits for earlier ones.
func (s *Session) completeReply(p *pendingReply) {
	reply := s.responder.Compose(p.utterance, p.lang)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !slices.Contains(s.pending, p) {
		return
	}
	p.reply = &reply

	flushed := 0
	for len(s.pending) > 0 && s.pending[0].reply != nil {
		head := s.pending[0]
		s.pending = s.pending[1:]
		msg := domain.NewMessage(domain.RoleAssistant, head.reply.Content, head.lang, s.now(), head.reply.Meta())
		s.appendLocked(msg)
		flushed++

		s.logger.Debug("Chat reply appended",
			"user_id", s.key.UserID,
			"session_id", s.key.SessionID,
			"submission_id", head.submissionID,
			"rule", head.reply.Rule,
			"topic", head.reply.TopicID,
		)
	}
	if flushed == 0 {
		return
	}
	s.emitLocked(EventLogChanged)
	if len(s.pending) == 0 {
		s.emitLocked(EventBusyChanged)
	}
}

// SetPreferredLanguage overrides the language used for form summaries and
// placeholders. It reports false for an unsupported language.
func (s *Session) SetPreferredLanguage(lang domain.Language) bool {
	if !lang.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.touchLocked()
	if s.language != lang {
		s.language = lang
		s.emitLocked(EventLanguageChanged)
	}
	return true
}

// Messages returns a copy of the log in append order.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked()
}

// Busy reports whether any accepted submission still awaits its reply.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Language returns the preferred language.
func (s *Session) Language() domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// PendingReplies returns the number of replies not yet appended.
func (s *Session) PendingReplies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastActive returns the time of the last visitor action.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Messages:    s.messagesLocked(),
		Busy:        len(s.pending) > 0,
		Language:    s.language,
		Draft:       s.draft,
		FormOpen:    s.formOpen,
		Placeholder: s.responder.Render(knowledge.KeyInputPlaceholder, s.language, nil),
	}
	if s.formOpen {
		form := s.form.Clone()
		snap.Form = &form
	}
	return snap
}

// Subscribe registers for change events. The returned cancel func is safe
// to call more than once. Sends never block: when the buffer is full the
// event is dropped and the consumer catches up from Snapshot.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, s.cfg.EventBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close tears the session down. Pending replies are discarded silently and
// subscriber channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	discarded := len(s.pending)
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.pending = nil

	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}

	s.logger.Info("Chat session closed",
		"user_id", s.key.UserID,
		"session_id", s.key.SessionID,
		"messages", len(s.messages),
		"discarded_replies", discarded,
	)
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) messagesLocked() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) appendLocked(msg domain.Message) {
	s.messages = append(s.messages, msg)

	eventType := "chat_assistant_message"
	direction := "inbound"
	if msg.Role == domain.RoleUser {
		eventType = "chat_user_message"
		direction = "outbound"
	}
	meta := map[string]any{
		"message_id": msg.ID,
		"language":   string(msg.Language),
	}
	for k, v := range msg.Meta {
		meta[k] = v
	}
	s.log.Log(ConversationLogEvent{
		Timestamp:  msg.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:     s.key.UserID,
		SessionID:  s.key.SessionID,
		Channel:    "chat",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: msg.Content,
		Content:    cleanForReadability(msg.Content),
		Meta:       meta,
	})
}

func (s *Session) emitLocked(kind EventKind) {
	if len(s.subs) == 0 {
		return
	}
	ev := Event{
		Kind:     kind,
		Busy:     len(s.pending) > 0,
		Language: s.language,
		LogSize:  len(s.messages),
	}
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("Dropping chat event for slow subscriber",
				"user_id", s.key.UserID,
				"session_id", s.key.SessionID,
				"subscriber", id,
				"kind", kind,
			)
		}
	}
}
