// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the override stores, the engine
// and the metrics, and injects them into the tools, prompts and resources.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/spikeforge/internal/config"
	"github.com/HendryAvila/spikeforge/internal/engine"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/metrics"
	"github.com/HendryAvila/spikeforge/internal/overrides"
	"github.com/HendryAvila/spikeforge/internal/prompts"
	"github.com/HendryAvila/spikeforge/internal/resources"
	"github.com/HendryAvila/spikeforge/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App is a fully wired server plus the background services serve runs
// next to it.
type App struct {
	MCP     *server.MCPServer
	Engine  *engine.Engine
	Metrics *metrics.Metrics

	cfg     *config.Config
	files   *overrides.FileStore
	closers []io.Closer
}

// New resolves every dependency from cfg. The SQLite store is optional:
// if it cannot be opened the server keeps working with directory
// overrides and synthesis only.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, Metrics: metrics.New()}

	dir, err := OverridesDir(cfg.Overrides.Dir)
	if err != nil {
		return nil, err
	}
	app.files = overrides.NewFileStore(dir)
	chain := overrides.Chain{app.files}

	if cfg.Overrides.DB != "" {
		db, err := overrides.NewSQLiteStore(cfg.Overrides.DB)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Overrides.DB).Msg("sqlite overrides disabled")
		} else {
			chain = append(chain, db)
			app.closers = append(app.closers, db)
		}
	}

	app.Engine = engine.New(cfg.Engine(),
		engine.WithStore(chain),
		engine.WithRecorder(app.Metrics),
	)
	app.Metrics.WatchCache(app.Engine.Cache().Stats)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"spikeforge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	register(s, app.Engine)
	app.MCP = s

	logging.Debug().
		Str("overrides_dir", dir).
		Int("stores", len(chain)).
		Int("catalog_limit", cfg.Catalog.Limit).
		Msg("server wired")
	return app, nil
}

func register(s *server.MCPServer, eng *engine.Engine) {
	// --- Register tools ---

	discoverTool := tools.NewDiscoverTool(eng)
	s.AddTool(discoverTool.Definition(), discoverTool.Handle)

	selectTool := tools.NewSelectTool(eng)
	s.AddTool(selectTool.Definition(), selectTool.Handle)

	explainTool := tools.NewExplainTool(eng)
	s.AddTool(explainTool.Definition(), explainTool.Handle)

	previewTool := tools.NewPreviewTool(eng)
	s.AddTool(previewTool.Definition(), previewTool.Handle)

	applyTool := tools.NewApplyTool(eng)
	s.AddTool(applyTool.Definition(), applyTool.Handle)

	// --- Register prompts ---

	scaffoldPrompt := prompts.NewScaffoldPrompt()
	s.AddPrompt(scaffoldPrompt.Definition(), scaffoldPrompt.Handle)

	browsePrompt := prompts.NewBrowsePrompt()
	s.AddPrompt(browsePrompt.Definition(), browsePrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(eng)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)
	s.AddResourceTemplate(resourceHandler.TemplateResource(), resourceHandler.HandleTemplate)
}

// Serve runs the MCP stdio transport on in/out together with the override
// watcher and the metrics listener, when enabled. It returns when the
// client closes its input, ctx is cancelled, or any service fails.
func (a *App) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	stdio := server.NewStdioServer(a.MCP)
	stdio.SetErrorLogger(stdlog.New(logging.Logger(), "", 0))
	g.Go(func() error {
		defer cancel()
		err := stdio.Listen(ctx, in, out)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.cfg.Overrides.Watch {
		w, err := overrides.NewWatcher(a.files.Dir(), a.Engine.Invalidate, a.Engine.InvalidateAll)
		if err != nil {
			logging.Warn().Err(err).Msg("override watcher disabled")
		} else {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, addr, metrics.Router(a.Metrics.Registry))
		})
	}

	logging.Info().Str("version", Version).Msg("spikeforge serving on stdio")
	return g.Wait()
}

// Close releases the stores. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OverridesDir resolves a relative override directory against the
// project root: the nearest ancestor of the working directory that
// already contains it. Without one, the working directory is used.
func OverridesDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := cwd
	for {
		candidate := filepath.Join(current, dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(cwd, dir), nil
		}
		current = parent
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use the catalog.
func serverInstructions() string {
	return `You have access to spikeforge, a catalog of code scaffolds ("spikes").

## What is a spike?
A spike is a small, parameterized set of files (plus optional patches) for one
technology combination, such as a typed Hono route in TypeScript or a BullMQ
worker in JavaScript. Spike ids look like synth-{library}-{pattern}-{style}-{language}.
Projects may also define their own spikes under .spikes/overrides; those take
precedence over generated ones with the same id.

## Workflow
1. spike_select with the user's task. Read the confidence:
   - high: continue with the best match
   - low: ask the clarifying questions, then call again with constraints
     (library, language, style, pattern), or browse with spike_discover
2. spike_explain or spike_preview to show the user what they would get
3. spike_apply to get the plan, then WRITE THE FILES YOURSELF. The server never
   touches the filesystem. Honor the plan's strategy:
   - create: skip files that already exist
   - overwrite: replace them
   - patch: also apply the unified diffs listed under Patches

## Parameters
Files contain {{token}} placeholders. Pass values in the params object of
spike_preview and spike_apply. Unbound tokens render as empty strings and are
listed in the response, so fill them in or ask the user.

## Errors
Failed lookups come back as "[Kind] message", with Kind one of NotFound,
MalformedIdentifier, UnknownIdentifier, MetadataLoadFailure or InvalidArgument.
NotFound responses list similar ids. Never invent a spike id.`
}
