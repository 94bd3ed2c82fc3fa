package knowledge

import (
	"maps"
	"slices"
	"strings"

	"github.com/ashureev/repairdesk/internal/domain"
)

// Vars are placeholder substitutions for Render. A variable named
// "vehicle" replaces every "{{vehicle}}" in the template.
type Vars map[string]string

// Render resolves key in lang against the built-in catalog.
func Render(key Key, lang domain.Language, vars Vars) string {
	return templates.Render(key, lang, vars)
}

// Render resolves key in lang, falling back to the primary language, and
// substitutes vars. An undeclared key renders as the empty string.
func (c Catalog) Render(key Key, lang domain.Language, vars Vars) string {
	entry, ok := c[key]
	if !ok {
		return ""
	}
	text, ok := entry[lang]
	if !ok {
		text = entry[domain.PrimaryLanguage]
	}
	if len(vars) == 0 {
		return text
	}
	// One pass: substituted values are never scanned again.
	names := slices.Sorted(maps.Keys(vars))
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{{"+name+"}}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Validate reports the keys that have no primary-language entry.
func (c Catalog) Validate() []Key {
	var missing []Key
	for key, entry := range c {
		if entry[domain.PrimaryLanguage] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
