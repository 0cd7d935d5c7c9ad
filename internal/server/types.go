package server

import (
	"time"

	"github.com/pjmilkymommyveeve/rulebot/internal/store"
)

// Request/Response structures
type ChatRequest struct {
	Message   string `json:"message" form:"message"`
	SessionID string `json:"session_id" form:"session_id"`
}

type ChatResponse struct {
	Response          string    `json:"response"`
	SessionID         string    `json:"session_id"`
	Intent            *string   `json:"intent"`
	Sentiment         string    `json:"sentiment"`
	SentimentModifier string    `json:"sentiment_modifier,omitempty"`
	Confidence        float64   `json:"confidence"`
	Timestamp         time.Time `json:"timestamp"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	SessionID     string          `json:"session_id"`
	Messages      []store.Message `json:"messages"`
	TotalMessages int             `json:"total_messages"`
}

type AnalyticsResponse struct {
	SessionID string `json:"session_id"`
	store.SessionAnalytics
}

type IntentsResponse struct {
	Intents []string `json:"intents"`
	Total   int      `json:"total"`
}

type ReloadResponse struct {
	Message     string    `json:"message"`
	RulesLoaded int       `json:"rules_loaded"`
	Warnings    []string  `json:"warnings,omitempty"`
	ReloadedAt  time.Time `json:"timestamp"`
}

type HealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	Uptime      float64 `json:"uptime"`
	Database    string  `json:"database"`
	RulesLoaded int     `json:"rules_loaded"`
	RulesSource string    `json:"rules_source"`
	LoadedAt    time.Time `json:"rules_loaded_at"`
	Warnings    int       `json:"rule_warnings"`
	Degraded    bool      `json:"degraded"`
}

type errorResponse struct {
	Error string `json:"error"`
}
