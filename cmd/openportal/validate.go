package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph>...",
	Short: "Check action graphs for consistency",
	Long:  `Reports unknown kinds, duplicate IDs, malformed combinators, bad retry policies and conditions that do not parse.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(args, cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All graphs are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
