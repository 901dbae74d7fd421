package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal/internal/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the action graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the action tree. With --trace the graph is run first and nodes are coloured by their result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.GraphOptions{}
		opts.GraphPath, _ = cmd.Flags().GetString("graph")
		opts.ContextPath, _ = cmd.Flags().GetString("context")
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Trace, _ = cmd.Flags().GetBool("trace")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.Graph(sc, opts, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("graph", "g", "", "Action graph file (YAML or JSON)")
	graphCmd.Flags().StringP("context", "c", "", "Execution context file used with --trace")
	graphCmd.Flags().Bool("trace", false, "Run the graph and colour nodes by result")
	_ = graphCmd.MarkFlagRequired("graph")
}
