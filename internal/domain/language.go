// Package domain contains core domain types for the repair desk assistant.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the two locales the assistant speaks.
type Language string

const (
	// LanguageEnglish is the primary language: the startup default and the
	// renderer's fallback.
	LanguageEnglish Language = "en"
	// LanguageAfrikaans is the secondary language.
	LanguageAfrikaans Language = "af"
)

// PrimaryLanguage is the default and fallback language.
const PrimaryLanguage = LanguageEnglish

// SecondaryLanguage is the alternate language.
const SecondaryLanguage = LanguageAfrikaans

// ErrUnknownLanguage is returned when a tag matches neither supported language.
var ErrUnknownLanguage = errors.New("unknown language")

var (
	supportedTags = []language.Tag{language.English, language.Afrikaans}
	tagMatcher    = language.NewMatcher(supportedTags)
)

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	if l == LanguageAfrikaans {
		return language.Afrikaans
	}
	return language.English
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageAfrikaans
}

// ParseLanguage maps a BCP 47 tag such as "af-ZA" or "en-GB" onto a
// supported language.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("parse language %q: %w", s, ErrUnknownLanguage)
	}
	switch strings.ToLower(s) {
	case "english":
		return LanguageEnglish, nil
	case "afrikaans":
		return LanguageAfrikaans, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", s, ErrUnknownLanguage)
	}
	_, idx, confidence := tagMatcher.Match(tag)
	if confidence == language.No {
		return "", fmt.Errorf("parse language %q: %w", s, ErrUnknownLanguage)
	}
	if idx == 1 {
		return LanguageAfrikaans, nil
	}
	return LanguageEnglish, nil
}
