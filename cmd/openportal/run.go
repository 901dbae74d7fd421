package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an action graph once",
	Long:  `Runs the graph against an optional execution context and prints the execution record as JSON.`,
	Example: `  openportal run -g checkout.yaml -c context.json
  openportal run -g graph.json --base-url http://localhost:3000 --calls`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{}
		opts.GraphPath, _ = cmd.Flags().GetString("graph")
		opts.ContextPath, _ = cmd.Flags().GetString("context")
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.LogFormat, _ = cmd.Flags().GetString("log-format")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.BaseURL, _ = cmd.Flags().GetString("base-url")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		opts.Calls, _ = cmd.Flags().GetBool("calls")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.Execute(sc, opts, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("graph", "g", "", "Action graph file (YAML or JSON)")
	runCmd.Flags().StringP("context", "c", "", "Execution context file (YAML or JSON)")
	runCmd.Flags().String("base-url", "", "Base URL for relative apiCall URLs")
	runCmd.Flags().Duration("timeout", 0, "Cancel the execution after this long")
	runCmd.Flags().Bool("calls", false, "Include recorded UI service calls in the output")
	_ = runCmd.MarkFlagRequired("graph")
}
