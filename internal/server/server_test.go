package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjmilkymommyveeve/rulebot/internal/conversation"
	"github.com/pjmilkymommyveeve/rulebot/internal/engine"
	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
	"github.com/pjmilkymommyveeve/rulebot/internal/store"
)

const testRules = `
intents:
  - intent: greeting
    patterns: ['\b(hi|hello)\b']
    responses: ["Hello!"]
    sentiment: positive
  - intent: help
    patterns: ['\bhelp\b']
    responses: ["I can help."]
fallback_responses: ["I don't understand."]
sentiment_modifiers:
  positive: "😊"
`

type testEnv struct {
	srv       *Server
	eng       *engine.Engine
	rulesPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRules), 0o644))

	eng, err := engine.New(rules.FileSource{Path: rulesPath})
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := conversation.NewService(eng, st, nil)
	srv := New(eng, svc, st, Options{AppName: "Test Bot", Version: "9.9.9", MaxMessageLength: 20}, nil)

	return &testEnv{srv: srv, eng: eng, rulesPath: rulesPath}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/chat", `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ChatResponse](t, rec)
	assert.Equal(t, "Hello!", resp.Response)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "greeting", *resp.Intent)
	assert.Equal(t, "positive", resp.Sentiment)
	assert.Equal(t, "😊", resp.SentimentModifier)
	assert.Equal(t, 0.95, resp.Confidence)
	assert.NotEmpty(t, resp.SessionID)
}

func TestChat_Fallback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/chat", `{"message": "zzqxw", "session_id": "abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ChatResponse](t, rec)
	assert.Equal(t, "abc", resp.SessionID)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "fallback", *resp.Intent)
	assert.Equal(t, "neutral", resp.Sentiment)
	assert.Equal(t, 0.3, resp.Confidence)
}

func TestChat_WhitespaceMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/chat", `{"message": "   "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ChatResponse](t, rec)
	assert.Nil(t, resp.Intent)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Contains(t, strings.ToLower(resp.Response), "say something")
}

func TestChat_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message": ""}`},
		{"missing message", `{}`},
		{"too long", `{"message": "this message is far longer than twenty characters"}`},
		{"bad json", `{"message": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestSessionHistoryAnalyticsClear(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/session", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sid := decode[SessionResponse](t, rec).SessionID
	require.NotEmpty(t, sid)

	for _, msg := range []string{"hello", "help", "zzqxw"} {
		rec = env.do(t, http.MethodPost, "/api/v1/chat", `{"message": "`+msg+`", "session_id": "`+sid+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/history/"+sid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[HistoryResponse](t, rec)
	assert.Equal(t, 6, history.TotalMessages)
	assert.Equal(t, "hello", history.Messages[0].Message)

	rec = env.do(t, http.MethodGet, "/api/v1/history/"+sid+"?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[HistoryResponse](t, rec).TotalMessages)

	rec = env.do(t, http.MethodGet, "/api/v1/history/"+sid+"?limit=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/"+sid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[AnalyticsResponse](t, rec)
	assert.Equal(t, sid, stats.SessionID)
	assert.Equal(t, 3, stats.TotalInteractions)
	assert.Equal(t, map[string]int{"greeting": 1, "help": 1, "fallback": 1}, stats.IntentDistribution)

	rec = env.do(t, http.MethodDelete, "/api/v1/history/"+sid, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/history/"+sid, "")
	assert.Equal(t, 0, decode[HistoryResponse](t, rec).TotalMessages)
}

func TestIntents(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/intents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[IntentsResponse](t, rec)
	assert.Equal(t, []string{"greeting", "help"}, resp.Intents)
	assert.Equal(t, 2, resp.Total)
}

func TestReloadRules(t *testing.T) {
	env := newTestEnv(t)

	updated := strings.Replace(testRules, "fallback_responses:", `  - intent: joke
    patterns: ['\bjoke\b']
    responses: ["knock knock"]
fallback_responses:`, 1)
	require.NoError(t, os.WriteFile(env.rulesPath, []byte(updated), 0o644))

	rec := env.do(t, http.MethodPost, "/api/v1/reload-rules", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[ReloadResponse](t, rec).RulesLoaded)

	rec = env.do(t, http.MethodPost, "/api/v1/chat", `{"message": "tell a joke"}`)
	resp := decode[ChatResponse](t, rec)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "joke", *resp.Intent)
}

func TestReloadRules_InvalidKeepsPrevious(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.rulesPath, []byte("- not: a mapping\n"), 0o644))

	rec := env.do(t, http.MethodPost, "/api/v1/reload-rules", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "not a mapping")

	assert.Equal(t, []string{"greeting", "help"}, env.eng.AvailableIntents())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "9.9.9", resp.Version)
	assert.Equal(t, "connected", resp.Database)
	assert.Equal(t, 2, resp.RulesLoaded)
	assert.Equal(t, env.rulesPath, resp.RulesSource)
	assert.Equal(t, env.eng.Rules().LoadedAt.Unix(), resp.LoadedAt.Unix())
	assert.Zero(t, resp.Warnings)
	assert.False(t, resp.Degraded)
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("gone") }

func TestHealth_Degraded(t *testing.T) {
	eng := engine.NewWithFallback(rules.FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	srv := New(eng, nil, downDB{}, Options{Version: "1"}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "disconnected", resp.Database)
	assert.True(t, resp.Degraded)
	assert.Equal(t, 1, resp.RulesLoaded)
	assert.False(t, resp.LoadedAt.IsZero())
}

func TestRootAndPing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Test Bot")

	rec = env.do(t, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", decode[map[string]string](t, rec)["message"])
}
