// Package agent implements the scripted repair desk assistant: reply
// composition, per-visitor conversation sessions and their HTTP surface.
package agent

import (
	"time"

	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/knowledge"
)

// Config holds agent configuration.
type Config struct {
	// ReplyDelay is the simulated processing time before a reply is appended.
	ReplyDelay time.Duration
	// Location is used for message display times.
	Location *time.Location
	// EventBuffer is the per-subscriber channel capacity.
	EventBuffer int
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		ReplyDelay:  600 * time.Millisecond,
		Location:    time.UTC,
		EventBuffer: 16,
	}
}

// EventKind names a session change.
type EventKind string

const (
	// EventLogChanged fires after one or more messages were appended.
	EventLogChanged EventKind = "log_changed"
	// EventBusyChanged fires when the busy flag flips.
	EventBusyChanged EventKind = "busy_changed"
	// EventLanguageChanged fires when the preferred language changes.
	EventLanguageChanged EventKind = "language_changed"
	// EventFormChanged fires when the intake form opens, closes or is edited.
	EventFormChanged EventKind = "form_changed"
)

// Event is a change notification. Consumers re-read the session state they
// care about; events carry only the fields needed to skip a read.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Busy     bool            `json:"busy"`
	Language domain.Language `json:"language"`
	LogSize  int             `json:"log_size"`
}

// Snapshot is a consistent read of a session's state.
type Snapshot struct {
	Messages    []domain.Message   `json:"messages"`
	Busy        bool               `json:"busy"`
	Language    domain.Language    `json:"language"`
	Draft       string             `json:"draft"`
	FormOpen    bool               `json:"form_open"`
	Form        *domain.IntakeForm `json:"form,omitempty"`
	Placeholder string             `json:"placeholder"`
}

// ChatRequest is the body of a message submission.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse acknowledges a submission.
type ChatResponse struct {
	Accepted bool         `json:"accepted"`
	Message  *MessageView `json:"message,omitempty"`
}

// LanguageRequest overrides the preferred language.
type LanguageRequest struct {
	Language string `json:"language"`
}

// FormFieldRequest assigns one intake form field.
type FormFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EvidenceRequest replaces the form's photo references.
type EvidenceRequest struct {
	References []string `json:"references"`
}

// FormSubmitResponse returns the appended message pair.
type FormSubmitResponse struct {
	Submitted bool         `json:"submitted"`
	Request   *MessageView `json:"request,omitempty"`
	Summary   *MessageView `json:"summary,omitempty"`
}

// MessageView is a message with its chat-bubble timestamp.
type MessageView struct {
	domain.Message
	DisplayTime string `json:"display_time"`
}

// PromptsResponse lists quick prompts.
type PromptsResponse struct {
	Prompts []knowledge.QuickPrompt `json:"prompts"`
}

// Stats contains agent statistics.
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	PendingReplies int `json:"pending_replies"`
	TopicCount     int `json:"topic_count"`
}

// SnapshotResponse is the HTTP view of a session.
type SnapshotResponse struct {
	Messages    []MessageView      `json:"messages"`
	Busy        bool               `json:"busy"`
	Language    domain.Language    `json:"language"`
	Draft       string             `json:"draft"`
	FormOpen    bool               `json:"form_open"`
	Form        *domain.IntakeForm `json:"form,omitempty"`
	Placeholder string             `json:"placeholder"`
}

// NewMessageView formats msg for display in loc.
func NewMessageView(msg domain.Message, loc *time.Location) MessageView {
	return MessageView{Message: msg, DisplayTime: msg.DisplayTime(loc)}
}

// View converts a snapshot for display in loc.
func (s Snapshot) View(loc *time.Location) SnapshotResponse {
	views := make([]MessageView, len(s.Messages))
	for i, m := range s.Messages {
		views[i] = NewMessageView(m, loc)
	}
	return SnapshotResponse{
		Messages:    views,
		Busy:        s.Busy,
		Language:    s.Language,
		Draft:       s.Draft,
		FormOpen:    s.FormOpen,
		Form:        s.Form,
		Placeholder: s.Placeholder,
	}
}
