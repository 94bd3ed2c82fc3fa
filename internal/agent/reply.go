package agent

import (
	"strings"

	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/knowledge"
)

// Fixed sentences that are never passed through the template catalog.
const (
	insurerPartnersNote = "We also coordinate with insurers like Santam, Hollard, and Mutual & Federal to smooth the process."
	bilingualInvitation = "Sure thing! I’m fluent in Afrikaans. If you’d prefer the conversation in Afrikaans, let me know and ek help jou dadelik."
	afrikaansAck        = "Geen probleem nie! Ek antwoord graag in Afrikaans—vra gerus enigiets oor herstelwerk, versekering of naverzorging."
	thanksEnglish       = "It’s a pleasure! Let me know if there’s anything else I can arrange for you."
	thanksAfrikaans     = "Plesier! Laat weet gerus as daar nog iets is waarmee ek kan help."
	bilingualNote       = "PS: Ek help ook graag in Afrikaans. Vra net, en ek antwoord dadelik in jou taal."
)

const (
	secondaryLanguageName = "afrikaans"
	gratitudeMarker       = "thank"
	paragraphBreak        = "\n\n"
)

// Reply rules recorded in message metadata.
const (
	RuleTopic               = "topic"
	RuleLanguageInvitation  = "language_invitation"
	RuleLanguageAcknowledge = "language_acknowledgement"
	RuleGratitude           = "gratitude"
	RuleFallback            = "fallback"
)

// Reply is a composed assistant answer plus the rule that produced it.
type Reply struct {
	Content string
	Rule    string
	TopicID string
}

// Meta returns message metadata describing how the reply was chosen.
func (r Reply) Meta() map[string]string {
	meta := map[string]string{"rule": r.Rule}
	if r.TopicID != "" {
		meta["topic"] = r.TopicID
	}
	return meta
}

// Responder turns an utterance into a scripted reply. It holds only
// read-only tables and is safe for concurrent use.
type Responder struct {
	base    *knowledge.Base
	catalog knowledge.Catalog
}

// NewResponder creates a responder over a topic base and template catalog.
// Nil arguments select the built-in tables.
func NewResponder(base *knowledge.Base, catalog knowledge.Catalog) *Responder {
	if base == nil {
		base = knowledge.DefaultBase()
	}
	if catalog == nil {
		catalog = knowledge.DefaultCatalog()
	}
	return &Responder{base: base, catalog: catalog}
}

// Render resolves a template from the responder's catalog.
func (r *Responder) Render(key knowledge.Key, lang domain.Language, vars knowledge.Vars) string {
	return r.catalog.Render(key, lang, vars)
}

// Reply returns only the reply text.
func (r *Responder) Reply(utterance string, lang domain.Language) string {
	return r.Compose(utterance, lang).Content
}

// Compose builds the reply for utterance in lang.
func (r *Responder) Compose(utterance string, lang domain.Language) Reply {
	if topic, ok := r.base.Match(utterance); ok {
		return Reply{
			Content: r.composeTopic(topic, lang),
			Rule:    RuleTopic,
			TopicID: topic.ID,
		}
	}

	lowered := knowledge.Lower(utterance)
	mentionsSecondary := strings.Contains(lowered, secondaryLanguageName)
	switch {
	case mentionsSecondary && lang == domain.PrimaryLanguage:
		return Reply{Content: bilingualInvitation, Rule: RuleLanguageInvitation}
	case mentionsSecondary && lang == domain.SecondaryLanguage:
		return Reply{Content: afrikaansAck, Rule: RuleLanguageAcknowledge}
	case strings.Contains(lowered, gratitudeMarker):
		if lang == domain.SecondaryLanguage {
			return Reply{Content: thanksAfrikaans, Rule: RuleGratitude}
		}
		return Reply{Content: thanksEnglish, Rule: RuleGratitude}
	}
	return Reply{Content: r.Render(knowledge.KeyFallback, lang, nil), Rule: RuleFallback}
}

func (r *Responder) composeTopic(topic knowledge.Topic, lang domain.Language) string {
	primary := r.Render(topic.Key, lang, nil)
	switch topic.Composition {
	case knowledge.ComposeEstimate:
		return primary + paragraphBreak +
			r.Render(knowledge.KeyEstimateFollowup, lang, nil) + "\n" +
			r.Render(knowledge.KeyPhotoReminder, lang, nil)
	case knowledge.ComposeBooking:
		return primary + paragraphBreak + r.Render(knowledge.KeyPhotoReminder, lang, nil)
	case knowledge.ComposeInsurance:
		return primary + paragraphBreak + insurerPartnersNote
	default:
		return primary
	}
}
