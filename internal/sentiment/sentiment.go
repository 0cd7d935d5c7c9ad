// Package sentiment provides the coarse keyword heuristic used when no intent
// rule matches a message.
package sentiment

import "strings"

// Label is a coarse sentiment category.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

var (
	positiveKeywords = []string{"good", "great", "excellent", "happy", "love", "awesome", "wonderful", "fantastic"}
	negativeKeywords = []string{"bad", "terrible", "hate", "awful", "poor", "sad", "angry", "frustrated"}
)

// ParseLabel maps a rule file label to a Label. An empty string is Neutral.
// The second return value is false for labels outside the known set.
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case Positive:
		return Positive, true
	case Negative:
		return Negative, true
	case Neutral, "":
		return Neutral, true
	default:
		return Neutral, false
	}
}

// Score counts how many positive and negative keywords occur as substrings of
// the message (case-insensitive) and returns the side with the strictly larger
// count, or Neutral on a tie.
func Score(message string) Label {
	lower := strings.ToLower(message)

	pos := countHits(lower, positiveKeywords)
	neg := countHits(lower, negativeKeywords)

	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
