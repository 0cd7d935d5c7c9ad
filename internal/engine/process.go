package engine

import (
	"go.uber.org/zap"

	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
	"github.com/pjmilkymommyveeve/rulebot/internal/sentiment"
)

// Process classifies a message and builds the reply. It never fails: an empty
// message gets a prompt for input, an unmatched one gets a fallback reply.
//
// The RuleSet is read once on entry, so a concurrent Reload cannot change the
// rules seen halfway through.
func (e *Engine) Process(message string) ProcessedMessage {
	rs := e.active.Load()

	normalized := rules.Normalize(message)
	if normalized == "" {
		return ProcessedMessage{
			Response:          EmptyInputResponse,
			Sentiment:         sentiment.Neutral,
			SentimentModifier: rs.Modifier(sentiment.Neutral),
			Confidence:        EmptyConfidence,
		}
	}

	m := rs.Match(normalized)
	if m.Matched() {
		e.logger.Debug("Matched intent",
			zap.String("intent", m.Intent.Name),
			zap.String("pattern", m.Pattern))

		return ProcessedMessage{
			Response:          e.intentResponse(rs, m.Intent),
			Intent:            m.Intent.Name,
			Sentiment:         m.Intent.Sentiment,
			SentimentModifier: rs.Modifier(m.Intent.Sentiment),
			MatchedPattern:    m.Pattern,
			Confidence:        MatchConfidence,
		}
	}

	label := sentiment.Score(message)
	e.logger.Debug("No intent matched", zap.String("sentiment", string(label)))

	return ProcessedMessage{
		Response:          e.fallbackResponse(rs),
		Intent:            FallbackIntent,
		Sentiment:         label,
		SentimentModifier: rs.Modifier(label),
		Confidence:        FallbackConfidence,
	}
}

func (e *Engine) intentResponse(rs *rules.RuleSet, intent *rules.IntentRule) string {
	if len(intent.Responses) == 0 {
		return e.fallbackResponse(rs)
	}
	return e.pick(intent.Responses)
}

func (e *Engine) fallbackResponse(rs *rules.RuleSet) string {
	if len(rs.FallbackResponses) == 0 {
		return DefaultFallbackResponse
	}
	return e.pick(rs.FallbackResponses)
}

func (e *Engine) pick(options []string) string {
	return options[e.intn(len(options))]
}
