// Package server exposes the chatbot over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pjmilkymommyveeve/rulebot/internal/conversation"
	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
	"github.com/pjmilkymommyveeve/rulebot/internal/store"
)

// RuleEngine is the part of *engine.Engine the HTTP layer uses directly.
type RuleEngine interface {
	Rules() *rules.RuleSet
	AvailableIntents() []string
	Reload() (*rules.RuleSet, error)
	Degraded() bool
	Source() string
}

// Conversations is the part of *conversation.Service the HTTP layer uses.
type Conversations interface {
	NewSession(ctx context.Context) (string, error)
	Chat(ctx context.Context, sessionID, message string) (conversation.Reply, error)
	History(ctx context.Context, sessionID string, limit int) ([]store.Message, error)
	Analytics(ctx context.Context, sessionID string) (store.SessionAnalytics, error)
	Clear(ctx context.Context, sessionID string) error
}

// Pinger reports database connectivity for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	AppName          string
	Version          string
	AllowedOrigins   []string
	MaxMessageLength int
}

// Server is the echo application.
type Server struct {
	echo          *echo.Echo
	engine        RuleEngine
	conversations Conversations
	db            Pinger
	opts          Options
	startedAt     time.Time
	logger        *zap.Logger
}

// New builds the echo instance and registers all routes.
func New(eng RuleEngine, conversations Conversations, db Pinger, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 1000
	}

	s := &Server{
		echo:          echo.New(),
		engine:        eng,
		conversations: conversations,
		db:            db,
		opts:          opts,
		startedAt:     time.Now(),
		logger:        logger.Named("http"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	// Middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Info("request", fields...)
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/ping", s.handlePing)

	api := s.echo.Group("/api/v1")
	api.POST("/chat", s.handleChat)
	api.POST("/session", s.handleCreateSession)
	api.GET("/history/:session_id", s.handleHistory)
	api.DELETE("/history/:session_id", s.handleClearHistory)
	api.GET("/analytics/:session_id", s.handleAnalytics)
	api.GET("/intents", s.handleIntents)
	api.POST("/reload-rules", s.handleReloadRules)
	api.GET("/health", s.handleHealth)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server started", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
