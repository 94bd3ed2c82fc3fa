package agent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/knowledge"
)

var (
	// ErrFormNotOpen is returned when editing a form that is not open.
	ErrFormNotOpen = errors.New("form is not open")
	// ErrUnknownFormField is returned for a field the intake form lacks.
	ErrUnknownFormField = errors.New("unknown form field")
)

const (
	unknownYear   = "Unknown year"
	genericDamage = "general damage"
)

// SummarizeForm renders the appointment summary followed by the photo
// reminder, as two paragraphs in lang.
func (r *Responder) SummarizeForm(form domain.IntakeForm, lang domain.Language) string {
	year := form.Year
	if year == "" {
		year = unknownYear
	}
	damage := form.DamageType
	if damage == "" {
		damage = form.DamageDescription
	}
	if damage == "" {
		damage = genericDamage
	}

	summary := r.Render(knowledge.KeyAppointmentSummary, lang, knowledge.Vars{
		"vehicle":    strings.TrimSpace(form.VehicleMake + " " + form.VehicleModel),
		"year":       year,
		"damageType": damage,
		"contact":    form.PreferredContact,
	})
	return summary + paragraphBreak + r.Render(knowledge.KeyPhotoReminder, lang, nil)
}

// formRequestContent is the synthetic visitor message for a submitted form.
func formRequestContent(form domain.IntakeForm) string {
	return fmt.Sprintf("Estimate request submitted for %s %s (%s).", form.VehicleMake, form.VehicleModel, form.Year)
}

// OpenForm shows the intake form. Opening an already open form keeps its
// current edits.
func (s *Session) OpenForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.formOpen {
		return
	}
	s.formOpen = true
	s.form = domain.DefaultIntakeForm()
	s.touchLocked()
	s.emitLocked(EventFormChanged)
}

// CloseForm hides the form and discards every edit. Nothing is appended.
func (s *Session) CloseForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.formOpen {
		return
	}
	s.formOpen = false
	s.form = domain.DefaultIntakeForm()
	s.touchLocked()
	s.emitLocked(EventFormChanged)
}

// SetFormField assigns one field, last write wins. It returns
// ErrFormNotOpen or ErrUnknownFormField when nothing was assigned.
func (s *Session) SetFormField(field domain.FormField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.formOpen {
		return ErrFormNotOpen
	}
	if !s.form.Set(field, value) {
		return fmt.Errorf("%w %q", ErrUnknownFormField, field)
	}
	s.touchLocked()
	s.emitLocked(EventFormChanged)
	return nil
}

// SetEvidence replaces the photo references; extras beyond five are dropped.
func (s *Session) SetEvidence(refs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.formOpen {
		return false
	}
	s.form.SetEvidence(refs)
	s.touchLocked()
	s.emitLocked(EventFormChanged)
	return true
}

// Form returns a copy of the draft form and whether it is open.
func (s *Session) Form() (domain.IntakeForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone(), s.formOpen
}

// SubmitForm appends the synthetic visitor request and the rendered summary,
// both in the preferred language, then resets and closes the form.
func (s *Session) SubmitForm() (request, summary domain.Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.formOpen {
		return domain.Message{}, domain.Message{}, false
	}

	form := s.form
	lang := s.language
	now := s.now()
	meta := map[string]string{
		"source":        "intake_form",
		"damage_type":   form.DamageType,
		"insurance":     form.Insurance,
		"contact":       form.PreferredContact,
		"evidence_refs": strconv.Itoa(len(form.Evidence)),
	}

	request = domain.NewMessage(domain.RoleUser, formRequestContent(form), lang, now, meta)
	summary = domain.NewMessage(domain.RoleAssistant, s.responder.SummarizeForm(form, lang), lang, now, map[string]string{
		"source": "intake_form",
		"rule":   "appointment_summary",
	})
	s.appendLocked(request)
	s.appendLocked(summary)

	s.form = domain.DefaultIntakeForm()
	s.formOpen = false
	s.touchLocked()
	s.emitLocked(EventLogChanged)
	s.emitLocked(EventFormChanged)

	s.logger.Info("Intake form submitted",
		"user_id", s.key.UserID,
		"session_id", s.key.SessionID,
		"language", lang,
		"evidence_refs", len(form.Evidence),
	)
	return request.Clone(), summary.Clone(), true
}
