package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pjmilkymommyveeve/rulebot/internal/rules"
)

func newValidateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a rules file and report skipped patterns and other warnings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := a.rulesSource()
			if len(args) == 1 {
				src = rules.FileSource{Path: args[0]}
			}

			rs, err := rules.Load(src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			patterns := 0
			for _, intent := range rs.Intents {
				patterns += len(intent.Patterns)
			}
			fmt.Fprintf(out, "%s: %d intents, %d patterns, %d fallback responses\n",
				rs.Source, len(rs.Intents), patterns, len(rs.FallbackResponses))

			for _, w := range rs.Warnings {
				fmt.Fprintf(out, "warning: %v\n", w)
			}

			if strict && len(rs.Warnings) > 0 {
				return fmt.Errorf("%d warnings in %s", len(rs.Warnings), rs.Source)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}
