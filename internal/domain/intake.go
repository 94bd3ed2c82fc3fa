package domain

import "slices"

// MaxEvidence is the number of photo references an intake form keeps.
const MaxEvidence = 5

// DamageTypes lists the selectable damage categories. The first entry is
// the form default.
var DamageTypes = []string{
	"Collision impact",
	"Hail damage",
	"Parking lot dent",
	"Rust and corrosion",
	"Chassis or frame damage",
	"Paint fade or scratches",
}

// InsuranceOptions lists the insurance claim states.
var InsuranceOptions = []string{
	"Not yet contacted",
	"Claim in progress",
	"Approved claim",
	"Paying privately",
}

// ContactPreferences lists how the workshop may reach the visitor.
var ContactPreferences = []string{
	"Phone call",
	"WhatsApp",
	"Email",
}

// FormField names one editable field of an IntakeForm.
type FormField string

// Intake form fields.
const (
	FieldVehicleMake       FormField = "vehicle_make"
	FieldVehicleModel      FormField = "vehicle_model"
	FieldYear              FormField = "year"
	FieldDamageDescription FormField = "damage_description"
	FieldDamageType        FormField = "damage_type"
	FieldInsurance         FormField = "insurance"
	FieldPreferredContact  FormField = "preferred_contact"
)

// IntakeForm captures the structured estimate request.
type IntakeForm struct {
	VehicleMake       string   `json:"vehicle_make"`
	VehicleModel      string   `json:"vehicle_model"`
	Year              string   `json:"year"`
	DamageDescription string   `json:"damage_description"`
	DamageType        string   `json:"damage_type"`
	Insurance         string   `json:"insurance"`
	PreferredContact  string   `json:"preferred_contact"`
	Evidence          []string `json:"evidence"`
}

// DefaultIntakeForm returns a form with every field at its default.
func DefaultIntakeForm() IntakeForm {
	return IntakeForm{
		DamageType:       DamageTypes[0],
		Insurance:        InsuranceOptions[0],
		PreferredContact: ContactPreferences[0],
		Evidence:         []string{},
	}
}

// Set assigns value to field. It reports false for an unknown field.
// Values are not validated against the option lists.
func (f *IntakeForm) Set(field FormField, value string) bool {
	switch field {
	case FieldVehicleMake:
		f.VehicleMake = value
	case FieldVehicleModel:
		f.VehicleModel = value
	case FieldYear:
		f.Year = value
	case FieldDamageDescription:
		f.DamageDescription = value
	case FieldDamageType:
		f.DamageType = value
	case FieldInsurance:
		f.Insurance = value
	case FieldPreferredContact:
		f.PreferredContact = value
	default:
		return false
	}
	return true
}

// SetEvidence replaces the evidence references, keeping at most MaxEvidence.
func (f *IntakeForm) SetEvidence(refs []string) {
	if len(refs) > MaxEvidence {
		refs = refs[:MaxEvidence]
	}
	f.Evidence = slices.Clone(refs)
	if f.Evidence == nil {
		f.Evidence = []string{}
	}
}

// Clone returns a deep copy of the form.
func (f IntakeForm) Clone() IntakeForm {
	f.Evidence = slices.Clone(f.Evidence)
	if f.Evidence == nil {
		f.Evidence = []string{}
	}
	return f
}
