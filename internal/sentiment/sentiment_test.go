package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Label
	}{
		{"positive keywords", "I love this, it's great", Positive},
		{"positive chatbot", "I love this chatbot it's great", Positive},
		{"negative keywords", "this is terrible and awful", Negative},
		{"no keywords", "what time is it", Neutral},
		{"empty", "", Neutral},
		{"tie", "good but bad", Neutral},
		{"case insensitive", "THIS IS AWESOME", Positive},
		{"substring hit", "I'm frustrated and sad, but happy", Negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.message))
		})
	}
}

func TestScore_KeywordCountedOnce(t *testing.T) {
	// Repeating a keyword does not outweigh two distinct keywords.
	assert.Equal(t, Negative, Score("great great great, but terrible and awful"))
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   Label
		wantOK bool
	}{
		{"positive", Positive, true},
		{"NEGATIVE", Negative, true},
		{" neutral ", Neutral, true},
		{"", Neutral, true},
		{"ecstatic", Neutral, false},
	}

	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}
