package rules

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize trims surrounding whitespace and lowercases. Interior characters,
// tabs and newlines included, are left as they are so patterns see the
// message text unchanged.
func Normalize(text string) string {
	// Casers carry state and cannot be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(text))
}

// Match walks the intents in definition order and, within each intent, its
// patterns in definition order. The first pattern found anywhere in the
// message wins; no reordering by specificity takes place.
func (rs *RuleSet) Match(normalized string) MatchResult {
	for i := range rs.Intents {
		intent := &rs.Intents[i]
		for _, p := range intent.Patterns {
			if p.regex.MatchString(normalized) {
				return MatchResult{Intent: intent, Pattern: p.Raw}
			}
		}
	}
	return MatchResult{}
}
