// spikeforge: a catalog of code scaffolds served over MCP.
//
// Spikes are parameterized file sets for one technology combination. Most
// are synthesized on demand from their identifier; projects and users can
// add their own as overrides.
//
// Usage:
//
//	spikeforge serve              # Start MCP server (stdio transport)
//	spikeforge select "<task>"    # Pick the best spike for a task
//	spikeforge preview <id>       # Render a spike
//	spikeforge overrides list     # Show stored overrides
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spikeforge/internal/config"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/server"
)

// errReported marks failures whose message was already written to stderr.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "spikeforge",
		Short: "Code scaffold catalog for AI coding tools",
		Long: `spikeforge serves a catalog of code scaffolds ("spikes") over the Model
Context Protocol, and exposes the same operations on the command line.

Configuration is read from spikeforge.yaml (or --config, or $SPIKEFORGE_CONFIG)
and SPIKEFORGE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default spikeforge.yaml, or $SPIKEFORGE_CONFIG)")

	root.AddCommand(
		newServeCmd(c),
		newDiscoverCmd(c),
		newSelectCmd(c),
		newExplainCmd(c),
		newPreviewCmd(c),
		newApplyCmd(c),
		newOverridesCmd(c),
		newPacksCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging())
	c.cfg = cfg
	return nil
}

// open wires the full application. Callers must Close it.
func (c *cli) open() (*server.App, error) {
	app, err := server.New(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	return app, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading: version must work anywhere.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spikeforge v%s\n", server.Version)
		},
	}
}
