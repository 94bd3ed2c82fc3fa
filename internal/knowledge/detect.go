// Package knowledge holds the assistant's static script: the language
// indicator lexicon, localized templates and the ordered topic table.
// Everything here is built once at init and never mutated.
package knowledge

import (
	"strings"

	"github.com/ashureev/repairdesk/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// secondaryIndicators are substrings that mark an utterance as Afrikaans.
var secondaryIndicators = []string{
	"goeie",
	"more",
	"middag",
	"dankie",
	"asseblief",
	"aanhaling",
	"kwotasie",
	"bespreking",
	"motor",
	"kleurwerk",
	"verf",
	"roes",
	"herstel",
	"praat jy afrikaans",
	"afrikan",
}

// Lower folds s for keyword matching. A Caser keeps state, so one is built
// per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// DetectLanguage classifies an utterance. Any secondary indicator wins,
// even when English cues are present too.
func DetectLanguage(utterance string) domain.Language {
	lowered := Lower(utterance)
	for _, word := range secondaryIndicators {
		if strings.Contains(lowered, word) {
			return domain.SecondaryLanguage
		}
	}
	return domain.PrimaryLanguage
}
