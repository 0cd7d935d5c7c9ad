package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pjmilkymommyveeve/rulebot/internal/conversation"
	"github.com/pjmilkymommyveeve/rulebot/internal/engine"
	"github.com/pjmilkymommyveeve/rulebot/internal/server"
	"github.com/pjmilkymommyveeve/rulebot/internal/store"
	"github.com/pjmilkymommyveeve/rulebot/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noWatch {
				a.cfg.Rules.Watch = false
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable hot reload of the rules file")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	logger := a.logger

	// A broken rules file must not keep the API down.
	eng := engine.NewWithFallback(a.rulesSource(), engine.WithLogger(logger))

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("Database initialized", zap.String("path", st.Path()))

	svc := conversation.NewService(eng, st, logger)
	srv := server.New(eng, svc, st, server.Options{
		AppName:          cfg.AppName,
		Version:          cfg.AppVersion,
		AllowedOrigins:   cfg.AllowedOrigins(),
		MaxMessageLength: cfg.Server.MaxMessageLength,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Rules.Watch {
		w, err := watcher.New(cfg.Rules.File, eng, cfg.Rules.Debounce, logger)
		if err != nil {
			return err
		}
		if err := w.Start(gctx); err != nil {
			logger.Warn("Hot reload disabled", zap.Error(err))
		}
		defer w.Stop()
	}

	g.Go(func() error {
		return srv.Start(cfg.Address())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Starting "+cfg.AppName,
		zap.String("version", cfg.AppVersion),
		zap.String("addr", cfg.Address()),
		zap.Int("intents", eng.RuleCount()),
	)
	return g.Wait()
}
