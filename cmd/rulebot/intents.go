package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIntentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "intents",
		Short: "List intent names in rule order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.strictEngine()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range eng.AvailableIntents() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
