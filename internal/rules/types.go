// Package rules loads the ordered intent rule table and matches normalized
// messages against it.
package rules

import (
	"regexp"
	"time"

	"github.com/pjmilkymommyveeve/rulebot/internal/sentiment"
)

// Pattern is a rule pattern together with its compiled, case-insensitive regex.
type Pattern struct {
	Raw   string // pattern text as written in the rule source
	regex *regexp.Regexp
}

// IntentRule is one entry of the rule table.
type IntentRule struct {
	Name      string
	Patterns  []Pattern // only patterns that compiled
	Responses []string
	Sentiment sentiment.Label
}

// RuleSet is an immutable, fully loaded rule table. It is safe for concurrent
// use by any number of readers; replacing it means building a new one.
type RuleSet struct {
	Intents           []IntentRule
	FallbackResponses []string
	Modifiers         map[sentiment.Label]string

	Source   string
	LoadedAt time.Time

	// Warnings holds the non-fatal problems found while loading
	// (PatternError values, empty response lists, unknown labels).
	Warnings []error
}

// IntentNames returns the intent names in definition order, duplicates kept.
func (rs *RuleSet) IntentNames() []string {
	names := make([]string, len(rs.Intents))
	for i, in := range rs.Intents {
		names[i] = in.Name
	}
	return names
}

// Modifier returns the display modifier configured for a sentiment label.
func (rs *RuleSet) Modifier(label sentiment.Label) string {
	return rs.Modifiers[label]
}

// MatchResult reports which intent and pattern matched. A nil Intent means no match.
type MatchResult struct {
	Intent  *IntentRule
	Pattern string
}

// Matched reports whether an intent was found.
func (m MatchResult) Matched() bool {
	return m.Intent != nil
}
