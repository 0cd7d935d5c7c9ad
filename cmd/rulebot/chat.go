package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/pjmilkymommyveeve/rulebot/internal/engine"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot in the terminal",
		Long: `Start an interactive session against the configured rules.

Type /reload to re-read the rules file, /intents to list intents,
and /quit (or Ctrl-C) to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.strictEngine()
			if err != nil {
				return err
			}
			return chatLoop(eng, cmd.OutOrStdout())
		},
	}
}

func chatLoop(eng *engine.Engine, out io.Writer) error {
	fmt.Fprintf(out, "Loaded %d intents from %s\n", eng.RuleCount(), eng.Source())

	for {
		prompt := promptui.Prompt{Label: "You"}
		input, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(input) {
		case "/quit", "/exit":
			return nil
		case "/intents":
			fmt.Fprintln(out, strings.Join(eng.AvailableIntents(), ", "))
			continue
		case "/reload":
			if rs, err := eng.Reload(); err != nil {
				fmt.Fprintf(out, "reload failed, keeping previous rules: %v\n", err)
			} else {
				fmt.Fprintf(out, "reloaded %d intents\n", len(rs.Intents))
			}
			continue
		}

		fmt.Fprintln(out, formatReply(eng.Process(input)))
	}
}

func formatReply(r engine.ProcessedMessage) string {
	var b strings.Builder
	b.WriteString("Bot: ")
	b.WriteString(r.Response)
	if r.SentimentModifier != "" {
		b.WriteString(" ")
		b.WriteString(r.SentimentModifier)
	}
	if r.Intent != "" {
		fmt.Fprintf(&b, "  [%s %.2f]", r.Intent, r.Confidence)
	}
	return b.String()
}
