// Package engine runs the message pipeline (normalize, match, select a
// response) against the active rule table and owns hot reloads of it.
package engine

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
	"github.com/pjmilkymommyveeve/rulebot/internal/sentiment"
)

const (
	// FallbackIntent is reported when no rule matched.
	FallbackIntent = "fallback"

	MatchConfidence    = 0.95
	FallbackConfidence = 0.3
	EmptyConfidence    = 0.0

	EmptyInputResponse      = "Please say something! 😊"
	DefaultFallbackResponse = "I'm not sure how to respond to that."
)

// ProcessedMessage is the result of one pipeline run. Intent and
// MatchedPattern are empty when absent.
type ProcessedMessage struct {
	Response          string          `json:"response"`
	Intent            string          `json:"intent,omitempty"`
	Sentiment         sentiment.Label `json:"sentiment"`
	SentimentModifier string          `json:"sentiment_modifier,omitempty"`
	MatchedPattern    string          `json:"matched_pattern,omitempty"`
	Confidence        float64         `json:"confidence"`
}

// Engine holds the active RuleSet. Readers load it with a single atomic read;
// Reload parses a fresh RuleSet and swaps the pointer.
type Engine struct {
	source   rules.Source
	active   atomic.Pointer[rules.RuleSet]
	degraded atomic.Bool
	reloadMu sync.Mutex

	intn   func(n int) int
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRandom replaces the random index source used to pick responses.
// intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(e *Engine) {
		if intn != nil {
			e.intn = intn
		}
	}
}

func newEngine(src rules.Source, opts []Option) *Engine {
	e := &Engine{
		source: src,
		intn:   rand.IntN,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("engine")
	return e
}

// New loads src and returns an engine serving it. A rule source that cannot
// be loaded is returned as an error.
func New(src rules.Source, opts ...Option) (*Engine, error) {
	e := newEngine(src, opts)

	rs, err := rules.Load(src)
	if err != nil {
		e.logger.Error("Failed to load rules",
			zap.String("source", src.Name()),
			zap.Error(err))
		return nil, err
	}
	e.install(rs)
	return e, nil
}

// NewWithFallback behaves like New, except that a failed load installs the
// built-in RuleSet instead. The failure is logged at error level and the
// engine reports Degraded until a reload succeeds.
func NewWithFallback(src rules.Source, opts ...Option) *Engine {
	e := newEngine(src, opts)

	rs, err := rules.Load(src)
	if err != nil {
		e.logger.Error("Failed to load rules, using built-in rule set",
			zap.String("source", src.Name()),
			zap.Error(err))
		e.degraded.Store(true)
		rs = rules.Default()
	}
	e.install(rs)
	return e
}

func (e *Engine) install(rs *rules.RuleSet) {
	for _, w := range rs.Warnings {
		e.logger.Warn("Rule warning", zap.String("source", rs.Source), zap.Error(w))
	}
	e.active.Store(rs)
	e.logger.Info("Loaded rules",
		zap.String("source", rs.Source),
		zap.Int("intents", len(rs.Intents)),
		zap.Int("fallback_responses", len(rs.FallbackResponses)),
		zap.Int("warnings", len(rs.Warnings)))
}

// Reload re-reads the rule source. On success the new RuleSet replaces the
// active one atomically; on failure the active RuleSet is left untouched.
//
// Reloads are serialized from read to swap, so the RuleSet left active is
// always the one read last. Process never takes the lock.
func (e *Engine) Reload() (*rules.RuleSet, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	e.logger.Info("Reloading rules", zap.String("source", e.source.Name()))

	rs, err := rules.Load(e.source)
	if err != nil {
		e.logger.Error("Reload rejected, keeping previous rules",
			zap.String("source", e.source.Name()),
			zap.Error(err))
		return nil, err
	}

	e.install(rs)
	e.degraded.Store(false)
	return rs, nil
}

// Rules returns the currently active RuleSet.
func (e *Engine) Rules() *rules.RuleSet {
	return e.active.Load()
}

// AvailableIntents lists intent names in definition order.
func (e *Engine) AvailableIntents() []string {
	return e.active.Load().IntentNames()
}

// RuleCount is the number of intents in the active RuleSet.
func (e *Engine) RuleCount() int {
	return len(e.active.Load().Intents)
}

// Degraded reports whether the built-in RuleSet is serving because the
// configured source failed to load.
func (e *Engine) Degraded() bool {
	return e.degraded.Load()
}

// Source returns the name of the configured rule source.
func (e *Engine) Source() string {
	return e.source.Name()
}
