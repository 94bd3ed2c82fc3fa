package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks messages typed (or synthesized) on behalf of the visitor.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the assistant.
	RoleAssistant Role = "assistant"
)

// DisplayTimeLayout renders a weekday and a 24h clock, e.g. "Tue 14:05".
const DisplayTimeLayout = "Mon 15:04"

// Message is one entry in a conversation log. Messages are never mutated
// after they are appended.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Language  Language          `json:"language"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, content string, lang Language, ts time.Time, meta map[string]string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Language:  lang,
		Timestamp: ts,
		Meta:      maps.Clone(meta),
	}
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	m.Meta = maps.Clone(m.Meta)
	return m
}

// DisplayTime formats the timestamp for chat bubbles in loc.
// A nil loc uses the timestamp's own location.
func (m Message) DisplayTime(loc *time.Location) string {
	ts := m.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	return ts.Format(DisplayTimeLayout)
}
