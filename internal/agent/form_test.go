package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/repairdesk/internal/domain"
	"github.com/ashureev/repairdesk/internal/knowledge"
)

func fillForm(t *testing.T, s *Session, fields map[domain.FormField]string) {
	t.Helper()
	for field, value := range fields {
		require.NoError(t, s.SetFormField(field, value), "set %s", field)
	}
}

func TestSubmitFormAppendsRequestAndSummary(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	s.OpenForm()
	fillForm(t, s, map[domain.FormField]string{
		domain.FieldVehicleMake:      "Toyota",
		domain.FieldVehicleModel:     "Hilux",
		domain.FieldYear:             "2021",
		domain.FieldDamageType:       "Collision impact",
		domain.FieldPreferredContact: "WhatsApp",
	})
	require.True(t, s.SetEvidence([]string{"front.jpg", "side.jpg"}))

	request, summary, ok := s.SubmitForm()
	require.True(t, ok)

	assert.Equal(t, domain.RoleUser, request.Role)
	assert.Equal(t, "Estimate request submitted for Toyota Hilux (2021).", request.Content)
	assert.Equal(t, "intake_form", request.Meta["source"])
	assert.Equal(t, "2", request.Meta["evidence_refs"])

	assert.Equal(t, domain.RoleAssistant, summary.Role)
	want := "Thanks! I’ve captured the details: Toyota Hilux (2021), damage noted as Collision impact. " +
		"Expect a call via WhatsApp to confirm the booking slot.\n\n" +
		knowledge.Render(knowledge.KeyPhotoReminder, domain.LanguageEnglish, nil)
	assert.Equal(t, want, summary.Content)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, request.ID, msgs[2].ID)
	assert.Equal(t, summary.ID, msgs[3].ID)
	assert.False(t, s.Busy())

	form, open := s.Form()
	assert.False(t, open)
	assert.Equal(t, domain.DefaultIntakeForm(), form)

	s.OpenForm()
	form, open = s.Form()
	assert.True(t, open)
	assert.Equal(t, domain.DefaultIntakeForm(), form)
}

func TestSubmitFormUsesPreferredLanguage(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	require.True(t, s.SetPreferredLanguage(domain.LanguageAfrikaans))
	s.OpenForm()
	fillForm(t, s, map[domain.FormField]string{
		domain.FieldVehicleMake:  "Ford",
		domain.FieldVehicleModel: "Ranger",
	})

	request, summary, ok := s.SubmitForm()
	require.True(t, ok)
	assert.Equal(t, domain.LanguageAfrikaans, request.Language)
	assert.Equal(t, domain.LanguageAfrikaans, summary.Language)
	assert.Contains(t, summary.Content, "Dankie! Ek het die besonderhede aangeteken: Ford Ranger (Unknown year), skade aangedui as Collision impact.")
}

func TestCloseFormDiscardsEdits(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	s.OpenForm()
	fillForm(t, s, map[domain.FormField]string{domain.FieldVehicleMake: "Mazda"})
	s.CloseForm()

	assert.Len(t, s.Messages(), 2)
	_, open := s.Form()
	assert.False(t, open)

	s.OpenForm()
	form, _ := s.Form()
	assert.Empty(t, form.VehicleMake)
}

func TestFormRequiresOpen(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	assert.ErrorIs(t, s.SetFormField(domain.FieldYear, "2019"), ErrFormNotOpen)
	assert.False(t, s.SetEvidence([]string{"a.jpg"}))
	_, _, ok := s.SubmitForm()
	assert.False(t, ok)
	assert.Len(t, s.Messages(), 2)

	s.OpenForm()
	assert.ErrorIs(t, s.SetFormField(domain.FormField("colour"), "red"), ErrUnknownFormField)
	assert.NoError(t, s.SetFormField(domain.FieldYear, "2019"))
	assert.NoError(t, s.SetFormField(domain.FieldYear, "2020"))

	form, _ := s.Form()
	assert.Equal(t, "2020", form.Year)
}

func TestSetFormFieldAfterCloseReportsNotOpen(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	s.OpenForm()
	require.NoError(t, s.SetFormField(domain.FieldYear, "2019"))
	s.CloseForm()

	err := s.SetFormField(domain.FormField("colour"), "red")
	assert.ErrorIs(t, err, ErrFormNotOpen)
	assert.NotErrorIs(t, err, ErrUnknownFormField)

	s.Close()
	assert.ErrorIs(t, s.SetFormField(domain.FieldYear, "2020"), ErrFormNotOpen)
}

func TestSetEvidenceKeepsFive(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 5*time.Millisecond)

	s.OpenForm()
	refs := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"}
	require.True(t, s.SetEvidence(refs))

	form, _ := s.Form()
	assert.Equal(t, refs[:domain.MaxEvidence], form.Evidence)

	snap := s.Snapshot()
	require.NotNil(t, snap.Form)
	assert.True(t, snap.FormOpen)
	assert.Len(t, snap.Form.Evidence, domain.MaxEvidence)
}
