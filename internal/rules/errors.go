package rules

import "fmt"

// SourceError reports a rule source that is missing or structurally invalid.
// A load that fails with SourceError produces no RuleSet.
type SourceError struct {
	Source string
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule source %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("rule source %s: %s", e.Source, e.Reason)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// PatternError reports a single pattern that could not be used. Only that
// pattern is skipped; the rest of the rule table still loads.
type PatternError struct {
	Intent  string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("intent %q: pattern %q: %v", e.Intent, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
