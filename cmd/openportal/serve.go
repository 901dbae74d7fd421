package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/openportal/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes the engine over HTTP: POST /v1/actions/run, POST /v1/actions/validate, GET /v1/actions/kinds, /healthz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ServeOptions{}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.LogFormat, _ = cmd.Flags().GetString("log-format")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.BaseURL, _ = cmd.Flags().GetString("base-url")
		opts.NoMetrics, _ = cmd.Flags().GetBool("no-metrics")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		if err := cli.Serve(sc, opts); err != nil {
			return err
		}
		if sig := sc.Signal(); sig != nil {
			cmd.PrintErrf("stopped by %s\n", sig)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("redis", "", "Redis address for the response cache (overrides config)")
	serveCmd.Flags().String("base-url", "", "Backend base URL for apiCall (overrides config)")
	serveCmd.Flags().Bool("no-metrics", false, "Disable the /metrics endpoint")
}
