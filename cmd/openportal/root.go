package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "openportal",
	Short: "OpenPortal runs declarative portal action graphs",
	Long: `OpenPortal executes the action graphs and form logic of low-code portal pages.
Graphs are JSON or YAML files; the engine can run them once, validate them,
or serve them over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultServiceFile, "Service configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every node transition")
}
