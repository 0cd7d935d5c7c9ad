package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pjmilkymommyveeve/rulebot/internal/sentiment"
)

// Source supplies the raw rule document. JSON documents are accepted as well,
// since the parser is YAML.
type Source interface {
	Name() string
	Read() ([]byte, error)
}

// FileSource reads rules from a file on disk.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// BytesSource serves an in-memory document.
type BytesSource struct {
	Label string
	Data  []byte
}

func (b BytesSource) Name() string {
	if b.Label == "" {
		return "inline"
	}
	return b.Label
}

func (b BytesSource) Read() ([]byte, error) {
	return b.Data, nil
}

// ruleDocument is the typed form of the rule source.
type ruleDocument struct {
	Intents            []yaml.Node       `yaml:"intents"`
	FallbackResponses  []string          `yaml:"fallback_responses"`
	SentimentModifiers map[string]string `yaml:"sentiment_modifiers"`
}

type intentEntry struct {
	Intent    *string  `yaml:"intent"`
	Patterns  []string `yaml:"patterns"`
	Responses []string `yaml:"responses"`
	Sentiment string   `yaml:"sentiment"`
}

// Load reads src and parses it into a RuleSet.
func Load(src Source) (*RuleSet, error) {
	data, err := src.Read()
	if err != nil {
		return nil, &SourceError{Source: src.Name(), Reason: "unreadable", Err: err}
	}
	return Parse(src.Name(), data)
}

// Parse builds a RuleSet from a rule document. Structural problems return a
// *SourceError. Bad patterns, unknown sentiment labels and empty response
// lists are recorded in RuleSet.Warnings and do not stop the load.
func Parse(name string, data []byte) (*RuleSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SourceError{Source: name, Reason: "malformed document", Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &SourceError{Source: name, Reason: "empty document"}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, &SourceError{Source: name, Reason: "document is not a mapping"}
	}

	var doc ruleDocument
	if err := root.Content[0].Decode(&doc); err != nil {
		return nil, &SourceError{Source: name, Reason: "malformed document", Err: err}
	}

	rs := &RuleSet{
		Intents:           make([]IntentRule, 0, len(doc.Intents)),
		FallbackResponses: doc.FallbackResponses,
		Modifiers:         make(map[sentiment.Label]string, len(doc.SentimentModifiers)),
		Source:            name,
		LoadedAt:          time.Now(),
	}

	for i := range doc.Intents {
		var entry intentEntry
		if err := doc.Intents[i].Decode(&entry); err != nil {
			return nil, &SourceError{Source: name, Reason: fmt.Sprintf("intents[%d] malformed", i), Err: err}
		}
		if entry.Intent == nil || strings.TrimSpace(*entry.Intent) == "" {
			return nil, &SourceError{Source: name, Reason: fmt.Sprintf("intents[%d] missing required key \"intent\"", i)}
		}

		rule, warnings := buildRule(entry)
		rs.Intents = append(rs.Intents, rule)
		rs.Warnings = append(rs.Warnings, warnings...)
	}

	for label, modifier := range doc.SentimentModifiers {
		l, ok := sentiment.ParseLabel(label)
		if !ok {
			rs.Warnings = append(rs.Warnings, fmt.Errorf("sentiment modifier for unknown label %q ignored", label))
			continue
		}
		rs.Modifiers[l] = modifier
	}

	return rs, nil
}

func buildRule(entry intentEntry) (IntentRule, []error) {
	var warnings []error

	rule := IntentRule{
		Name:      *entry.Intent,
		Patterns:  make([]Pattern, 0, len(entry.Patterns)),
		Responses: entry.Responses,
	}

	for _, raw := range entry.Patterns {
		p, err := compilePattern(raw)
		if err != nil {
			warnings = append(warnings, &PatternError{Intent: rule.Name, Pattern: raw, Err: err})
			continue
		}
		rule.Patterns = append(rule.Patterns, p)
	}

	label, ok := sentiment.ParseLabel(entry.Sentiment)
	if !ok {
		warnings = append(warnings, fmt.Errorf("intent %q: unknown sentiment %q, using %s", rule.Name, entry.Sentiment, sentiment.Neutral))
	}
	rule.Sentiment = label

	if len(rule.Responses) == 0 {
		warnings = append(warnings, fmt.Errorf("intent %q: no responses, fallback pool will be used", rule.Name))
	}

	return rule, warnings
}

var errEmptyPattern = errors.New("empty pattern matches every message")

func compilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, errEmptyPattern
	}
	re, err := regexp.Compile("(?i)" + raw)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Raw: raw, regex: re}, nil
}

// Default returns the minimal built-in RuleSet used when the configured
// source cannot be loaded at startup.
func Default() *RuleSet {
	greeting, _ := compilePattern(`\b(hi|hello|hey)\b`)
	return &RuleSet{
		Intents: []IntentRule{
			{
				Name:      "greeting",
				Patterns:  []Pattern{greeting},
				Responses: []string{"Hello! How can I help you?"},
				Sentiment: sentiment.Positive,
			},
		},
		FallbackResponses: []string{"I'm not sure I understand. Can you rephrase that?"},
		Modifiers: map[sentiment.Label]string{
			sentiment.Positive: "😊",
			sentiment.Neutral:  "👍",
		},
		Source:   "builtin",
		LoadedAt: time.Now(),
	}
}
