package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of openportal",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "openportal version %s\n", strings.TrimSpace(openportal.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
