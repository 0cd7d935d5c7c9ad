package server

import (
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the " + s.opts.AppName + " API",
		"version": s.opts.Version,
	})
}

func (s *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "pong",
	})
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}

	// Whitespace-only messages pass here; the engine answers them itself.
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message is required"})
	}
	if n := utf8.RuneCountInString(req.Message); n > s.opts.MaxMessageLength {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("message too long: %d characters (max %d)", n, s.opts.MaxMessageLength),
		})
	}

	reply, err := s.conversations.Chat(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("Error in chat endpoint", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "An error occurred while processing your message",
		})
	}

	resp := ChatResponse{
		Response:          reply.Response,
		SessionID:         reply.SessionID,
		Sentiment:         string(reply.Sentiment),
		SentimentModifier: reply.SentimentModifier,
		Confidence:        reply.Confidence,
		Timestamp:         reply.Timestamp,
	}
	if reply.Intent != "" {
		resp.Intent = &reply.Intent
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateSession(c echo.Context) error {
	id, err := s.conversations.NewSession(c.Request().Context())
	if err != nil {
		s.logger.Error("Error creating session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to create session"})
	}
	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: id,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	sessionID := c.Param("session_id")

	limit := 0
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
	}

	messages, err := s.conversations.History(c.Request().Context(), sessionID, limit)
	if err != nil {
		s.logger.Error("Error fetching history", zap.String("session_id", sessionID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to retrieve conversation history"})
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		SessionID:     sessionID,
		Messages:      messages,
		TotalMessages: len(messages),
	})
}

func (s *Server) handleClearHistory(c echo.Context) error {
	sessionID := c.Param("session_id")

	if err := s.conversations.Clear(c.Request().Context(), sessionID); err != nil {
		s.logger.Error("Error clearing history", zap.String("session_id", sessionID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to clear conversation history"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAnalytics(c echo.Context) error {
	sessionID := c.Param("session_id")

	stats, err := s.conversations.Analytics(c.Request().Context(), sessionID)
	if err != nil {
		s.logger.Error("Error fetching analytics", zap.String("session_id", sessionID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to retrieve analytics"})
	}

	return c.JSON(http.StatusOK, AnalyticsResponse{
		SessionID:        sessionID,
		SessionAnalytics: stats,
	})
}

func (s *Server) handleIntents(c echo.Context) error {
	intents := s.engine.AvailableIntents()
	return c.JSON(http.StatusOK, IntentsResponse{
		Intents: intents,
		Total:   len(intents),
	})
}

func (s *Server) handleReloadRules(c echo.Context) error {
	rs, err := s.engine.Reload()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: fmt.Sprintf("Failed to reload rules: %v", err),
		})
	}

	warnings := make([]string, 0, len(rs.Warnings))
	for _, w := range rs.Warnings {
		warnings = append(warnings, w.Error())
	}

	return c.JSON(http.StatusOK, ReloadResponse{
		Message:     "Rules reloaded successfully",
		RulesLoaded: len(rs.Intents),
		Warnings:    warnings,
		ReloadedAt:  time.Now().UTC(),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "connected"
	if err := s.db.Ping(c.Request().Context()); err != nil {
		s.logger.Warn("Database ping failed", zap.Error(err))
		database = "disconnected"
	}

	status := "healthy"
	if database != "connected" || s.engine.Degraded() {
		status = "degraded"
	}

	rs := s.engine.Rules()
	uptime := time.Since(s.startedAt).Seconds()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      status,
		Version:     s.opts.Version,
		Uptime:      float64(int64(uptime*100)) / 100,
		Database:    database,
		RulesLoaded: len(rs.Intents),
		RulesSource: s.engine.Source(),
		LoadedAt:    rs.LoadedAt,
		Warnings:    len(rs.Warnings),
		Degraded:    s.engine.Degraded(),
	})
}
