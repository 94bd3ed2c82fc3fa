package knowledge

import (
	"fmt"

	"github.com/ashureev/repairdesk/internal/domain"
)

// Key selects a localized template.
type Key string

// Template keys.
const (
	KeyWelcome            Key = "welcome"
	KeyPromptEstimate     Key = "promptEstimate"
	KeyEstimateFollowup   Key = "estimateFollowup"
	KeyBookingAssist      Key = "bookingAssist"
	KeyInsuranceAssist    Key = "insuranceAssist"
	KeyTurnaround         Key = "turnaround"
	KeyTips               Key = "tips"
	KeyRust               Key = "rust"
	KeyPanel              Key = "panel"
	KeySpray              Key = "spray"
	KeyDent               Key = "dent"
	KeyStatus             Key = "status"
	KeyAppointmentSummary Key = "appointmentSummary"
	KeyPhotoReminder      Key = "photoReminder"
	KeyFallback           Key = "fallback"
	KeyInputPlaceholder   Key = "inputPlaceholder"
)

// Catalog maps template keys to their per-language text.
type Catalog map[Key]map[domain.Language]string

var templates = Catalog{
	KeyWelcome: {
		domain.LanguageEnglish:   "Hello! I'm Marli, your digital assistant from De Jongh’s Panelbeating Centre. How can I take care of your vehicle today?",
		domain.LanguageAfrikaans: "Hallo! Ek is Marli, jou digitale assistent van De Jongh’s Paneelklop Sentrum. Hoe kan ek vandag met jou voertuig help?",
	},
	KeyPromptEstimate: {
		domain.LanguageEnglish:   "To prepare an estimate I'll need your vehicle make, model, year, and a short note about the damage.",
		domain.LanguageAfrikaans: "Om ’n skatting voor te berei, het ek jou voertuig se maak, model, jaar en ’n kort beskrywing van die skade nodig.",
	},
	KeyEstimateFollowup: {
		domain.LanguageEnglish:   "If you have photos handy, you can upload them when you book. Our estimators respond within one business day.",
		domain.LanguageAfrikaans: "As jy foto's byderhand het, kan jy dit oplaai wanneer jy bespreek. Ons skatteerders antwoord binne een werksdag.",
	},
	KeyBookingAssist: {
		domain.LanguageEnglish:   "I can pencil you in. When would you like to drop off your vehicle, and what’s the best way for us to reach you?",
		domain.LanguageAfrikaans: "Ek kan jou bespreking vaspen. Wanneer wil jy die voertuig inbring, en wat is die beste manier om jou terug te kontak?",
	},
	KeyInsuranceAssist: {
		domain.LanguageEnglish:   "We guide you through the insurance process—assessing the damage, preparing photo evidence, and liaising with assessors.",
		domain.LanguageAfrikaans: "Ons help jou deur die versekeringsproses—ons beoordeel die skade, berei fotobewyse voor en skakel saam met assessore.",
	},
	KeyTurnaround: {
		domain.LanguageEnglish:   "Typical collision repairs take 5-7 working days once approved. Resprays add 2-3 days for curing to ensure a flawless finish.",
		domain.LanguageAfrikaans: "Tipiese botsingsherstelwerk neem 5-7 werksdae sodra dit goedgekeur is. Spuitverfwerk voeg 2-3 dae by vir uitharding om ’n foutlose afwerking te verseker.",
	},
	KeyTips: {
		domain.LanguageEnglish:   "After we’ve restored your vehicle, keep the finish protected: avoid harsh washes for 14 days, apply a pH-neutral shampoo, and consider a ceramic sealant every 12 months.",
		domain.LanguageAfrikaans: "Nadat ons jou voertuig herstel het, beskerm die afwerking: vermy sterk wasmiddels vir 14 dae, gebruik ’n pH-neutrale sjampoe en oorweeg ’n keramiese seël elke 12 maande.",
	},
	KeyRust: {
		domain.LanguageEnglish:   "Our rust treatment removes corrosion, neutralises affected panels, and seals the metal before respraying. It’s ideal to address it early before it spreads.",
		domain.LanguageAfrikaans: "Ons roesbehandeling verwyder korrosie, neutraliseer die panele en verseël die metaal voordat ons herspuit. Dit is ideaal om dit vroegtydig te hanteer voordat dit versprei.",
	},
	KeyPanel: {
		domain.LanguageEnglish:   "Panel beating straightens and reshapes damaged bodywork with precision equipment. Our team blends traditional craft with modern chassis measurement tools.",
		domain.LanguageAfrikaans: "Paneelklopwerk reguit en hervorm beskadigde karrosserie met presisietoerusting. Ons span kombineer vakmanskap met moderne belyningsgereedskap.",
	},
	KeySpray: {
		domain.LanguageEnglish:   "Our spray booth provides dust-free, temperature-controlled resprays. We colour match using manufacturer codes and spectrophotometer scans.",
		domain.LanguageAfrikaans: "Ons spuitkamer bied stofvrye, temperatuurbeheerde spuitwerk. Ons kleurpas met vervaardigerkodes en spektrofotometer-skanderings.",
	},
	KeyDent: {
		domain.LanguageEnglish:   "We offer both paintless dent repair and traditional reshaping depending on the damage. Small dents are often sorted while you wait.",
		domain.LanguageAfrikaans: "Ons bied beide verflose duikherstel en tradisionele hervorming afhangend van die skade. Klein duike word dikwels uitgesorteer terwyl jy wag.",
	},
	KeyStatus: {
		domain.LanguageEnglish:   "Pop me the job card number or registration and I’ll fetch the latest status from the workshop floor.",
		domain.LanguageAfrikaans: "Gee my die werkkaartnommer of registrasie en ek kry die nuutste status van die werkswinkelvloer af.",
	},
	KeyAppointmentSummary: {
		domain.LanguageEnglish:   "Thanks! I’ve captured the details: {{vehicle}} ({{year}}), damage noted as {{damageType}}. Expect a call via {{contact}} to confirm the booking slot.",
		domain.LanguageAfrikaans: "Dankie! Ek het die besonderhede aangeteken: {{vehicle}} ({{year}}), skade aangedui as {{damageType}}. Jy kan ’n oproep via {{contact}} verwag om die tyd te bevestig.",
	},
	KeyPhotoReminder: {
		domain.LanguageEnglish:   "You can email supporting photos to estimates@dejonghs-panel.co.za or upload them via WhatsApp on 082 555 0198.",
		domain.LanguageAfrikaans: "Jy kan ondersteunende foto's stuur na estimates@dejonghs-panel.co.za of via WhatsApp oplaai na 082 555 0198.",
	},
	KeyFallback: {
		domain.LanguageEnglish:   "I’ve noted that. Let me know if you’d like details on services, booking assistance, or post-repair care.",
		domain.LanguageAfrikaans: "Ek het daarvan kennis geneem. Laat weet my as jy besonderhede oor dienste, bespreking of naverzorging benodig.",
	},
	KeyInputPlaceholder: {
		domain.LanguageEnglish:   "Type any question about repairs, estimates, or updates…",
		domain.LanguageAfrikaans: "Tik jou vraag oor herstelwerk of skatting hier…",
	},
}

func init() {
	if missing := templates.Validate(); len(missing) > 0 {
		panic(fmt.Sprintf("knowledge: templates without a primary entry: %v", missing))
	}
}

// DefaultCatalog returns the built-in template catalog. Callers must treat
// it as read-only.
func DefaultCatalog() Catalog {
	return templates
}

// Keys returns every declared template key.
func Keys() []Key {
	keys := make([]Key, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	return keys
}

// QuickPrompt is a canned utterance the view layer offers as a shortcut.
type QuickPrompt struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

var quickPrompts = []QuickPrompt{
	{Label: "Panel beating", Message: "Can you tell me about your collision repair service?"},
	{Label: "Insurance help", Message: "Do you assist with insurance claims for accident repairs?"},
	{Label: "Rust treatment", Message: "My car has rust on the door sills. How can you help?"},
	{Label: "Turnaround time", Message: "How long does a typical repair and respray take?"},
}

// QuickPrompts returns a copy of the shortcut list.
func QuickPrompts() []QuickPrompt {
	out := make([]QuickPrompt, len(quickPrompts))
	copy(out, quickPrompts)
	return out
}
