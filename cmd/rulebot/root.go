package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pjmilkymommyveeve/rulebot/internal/config"
	"github.com/pjmilkymommyveeve/rulebot/internal/engine"
	"github.com/pjmilkymommyveeve/rulebot/internal/logging"
	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	rulesFile  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rulebot",
		Short: "Rule-based chatbot with pattern matching and intent classification",
		Long: `rulebot classifies messages into intents using an ordered table of
regular expression rules, replies with a templated response, and records
conversation analytics.

Rules are read from a YAML (or JSON) document with three sections:
intents, fallback_responses and sentiment_modifiers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "config file (missing file means defaults)")
	root.PersistentFlags().StringVarP(&a.rulesFile, "rules", "r", "", "rules file, overrides the configured one")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newChatCmd(a),
		newIntentsCmd(a),
		newValidateCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.rulesFile != "" {
		cfg.Rules.File = a.rulesFile
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) rulesSource() rules.FileSource {
	return rules.FileSource{Path: a.cfg.Rules.File}
}

// strictEngine loads the configured rules and fails if they cannot be read,
// for commands where silently answering from the built-in rules would mislead.
func (a *app) strictEngine() (*engine.Engine, error) {
	eng, err := engine.New(a.rulesSource(), engine.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return eng, nil
}
