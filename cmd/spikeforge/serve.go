package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		metricsAddr string
		noWatch     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server using the stdio transport. stdout carries the
protocol; logs go to stderr.

Optionally exposes Prometheus metrics and a health check on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				c.cfg.Metrics.Addr = metricsAddr
			}
			if noWatch {
				c.cfg.Overrides.Watch = false
			}

			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return app.Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address, e.g. 127.0.0.1:9464")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the overrides directory for changes")
	return cmd
}
