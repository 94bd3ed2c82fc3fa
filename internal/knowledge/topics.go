package knowledge

import "strings"

// Composition says what a reply appends after a topic's own template.
type Composition int

const (
	// ComposePlain appends nothing.
	ComposePlain Composition = iota
	// ComposeEstimate appends the follow-up and the photo reminder.
	ComposeEstimate
	// ComposeBooking appends the photo reminder.
	ComposeBooking
	// ComposeInsurance appends the insurer partner sentence.
	ComposeInsurance
)

// Topic is one knowledge-base rule.
type Topic struct {
	ID          string
	Keywords    []string
	Key         Key
	Composition Composition
}

// Matches reports whether any keyword occurs in an already lowered utterance.
func (t Topic) Matches(lowered string) bool {
	for _, kw := range t.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Base is an ordered, read-only list of topics. The first match wins.
type Base struct {
	topics []Topic
}

// NewBase builds a knowledge base from topics in priority order. Keywords
// are lowered once here; topics without keywords are skipped.
func NewBase(topics []Topic) *Base {
	b := &Base{topics: make([]Topic, 0, len(topics))}
	for _, t := range topics {
		if len(t.Keywords) == 0 {
			continue
		}
		kws := make([]string, len(t.Keywords))
		for i, kw := range t.Keywords {
			kws[i] = Lower(kw)
		}
		t.Keywords = kws
		b.topics = append(b.topics, t)
	}
	return b
}

// Match returns the first topic, in declaration order, with a keyword
// contained in the utterance.
func (b *Base) Match(utterance string) (Topic, bool) {
	lowered := Lower(utterance)
	for _, t := range b.topics {
		if t.Matches(lowered) {
			return t, true
		}
	}
	return Topic{}, false
}

// Topics returns the topics in match order.
func (b *Base) Topics() []Topic {
	out := make([]Topic, len(b.topics))
	copy(out, b.topics)
	return out
}

var defaultBase = NewBase([]Topic{
	{ID: "panel", Keywords: []string{"panel", "collision", "accident", "bodywork", "panelbeating", "panel beating", "impact"}, Key: KeyPanel},
	{ID: "spray", Keywords: []string{"spray", "paint", "respray", "resprays", "colour", "color", "touch up"}, Key: KeySpray},
	{ID: "dent", Keywords: []string{"dent", "ding", "hail", "pdr", "paintless"}, Key: KeyDent},
	{ID: "rust", Keywords: []string{"rust", "corrosion", "oxidation", "roes"}, Key: KeyRust},
	{ID: "insurance", Keywords: []string{"insurance", "claim", "insurer", "assessor"}, Key: KeyInsuranceAssist, Composition: ComposeInsurance},
	{ID: "turnaround", Keywords: []string{"long", "time", "turnaround", "how long", "duration", "ready"}, Key: KeyTurnaround},
	{ID: "status", Keywords: []string{"status", "update", "progress", "job", "ready", "collection"}, Key: KeyStatus},
	{ID: "tips", Keywords: []string{"tips", "care", "maintenance", "aftercare", "protect"}, Key: KeyTips},
	{ID: "estimate", Keywords: []string{"estimate", "quote", "cost", "pricing", "price", "skatting", "aanhaling"}, Key: KeyPromptEstimate, Composition: ComposeEstimate},
	{ID: "booking", Keywords: []string{"book", "booking", "appointment", "schedule", "bespreking"}, Key: KeyBookingAssist, Composition: ComposeBooking},
})

// DefaultBase returns the workshop's topic table.
func DefaultBase() *Base {
	return defaultBase
}
