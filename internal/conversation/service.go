// Package conversation ties the engine to persistence: one Chat call is one
// user turn, stored together with the bot reply and its analytics.
package conversation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pjmilkymommyveeve/rulebot/internal/engine"
	"github.com/pjmilkymommyveeve/rulebot/internal/sentiment"
	"github.com/pjmilkymommyveeve/rulebot/internal/store"
)

// DefaultHistoryLimit is used when a history request gives no positive limit.
const DefaultHistoryLimit = 50

// Processor classifies a message. *engine.Engine implements it.
type Processor interface {
	Process(message string) engine.ProcessedMessage
}

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	CreateSession(ctx context.Context) (string, error)
	EnsureSession(ctx context.Context, sessionID string) error
	SaveMessage(ctx context.Context, msg store.Message) (int64, error)
	History(ctx context.Context, sessionID string, limit int) ([]store.Message, error)
	SaveInteraction(ctx context.Context, in store.Interaction) error
	Analytics(ctx context.Context, sessionID string) (store.SessionAnalytics, error)
	ClearSession(ctx context.Context, sessionID string) (int64, error)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID         string
	Response          string
	Intent            string
	Sentiment         sentiment.Label
	SentimentModifier string
	MatchedPattern    string
	Confidence        float64
	Timestamp         time.Time
}

// Service runs chat turns and serves session history and analytics.
type Service struct {
	processor Processor
	store     Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a conversation service.
func NewService(processor Processor, st Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		processor: processor,
		store:     st,
		logger:    logger.Named("conversation"),
		now:       time.Now,
	}
}

// NewSession creates an empty session.
func (s *Service) NewSession(ctx context.Context) (string, error) {
	id, err := s.store.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Info("Created new session", zap.String("session_id", id))
	return id, nil
}

// Chat processes one user message. An empty sessionID starts a new session.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (Reply, error) {
	start := s.now()

	if sessionID == "" {
		id, err := s.NewSession(ctx)
		if err != nil {
			return Reply{}, err
		}
		sessionID = id
	} else if err := s.store.EnsureSession(ctx, sessionID); err != nil {
		return Reply{}, err
	}

	if _, err := s.store.SaveMessage(ctx, store.Message{
		SessionID: sessionID,
		Message:   message,
		IsUser:    true,
	}); err != nil {
		return Reply{}, fmt.Errorf("save user message: %w", err)
	}

	result := s.processor.Process(message)

	if _, err := s.store.SaveMessage(ctx, store.Message{
		SessionID: sessionID,
		Message:   result.Response,
		IsUser:    false,
		Intent:    result.Intent,
		Sentiment: string(result.Sentiment),
	}); err != nil {
		return Reply{}, fmt.Errorf("save bot message: %w", err)
	}

	elapsed := s.now().Sub(start)
	if err := s.store.SaveInteraction(ctx, store.Interaction{
		SessionID:      sessionID,
		Intent:         result.Intent,
		MatchedPattern: result.MatchedPattern,
		ResponseTime:   elapsed,
	}); err != nil {
		return Reply{}, fmt.Errorf("save analytics: %w", err)
	}

	s.logger.Debug("Processed message",
		zap.String("session_id", sessionID),
		zap.String("intent", result.Intent),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("elapsed", elapsed))

	return Reply{
		SessionID:         sessionID,
		Response:          result.Response,
		Intent:            result.Intent,
		Sentiment:         result.Sentiment,
		SentimentModifier: result.SentimentModifier,
		MatchedPattern:    result.MatchedPattern,
		Confidence:        result.Confidence,
		Timestamp:         s.now().UTC(),
	}, nil
}

// History returns the messages of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.History(ctx, sessionID, limit)
}

// Analytics summarizes a session's interactions.
func (s *Service) Analytics(ctx context.Context, sessionID string) (store.SessionAnalytics, error) {
	return s.store.Analytics(ctx, sessionID)
}

// Clear deletes a session's message history.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	n, err := s.store.ClearSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.logger.Info("Cleared session", zap.String("session_id", sessionID), zap.Int64("messages", n))
	return nil
}
