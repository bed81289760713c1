package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/spikeforge/internal/engine"
	"github.com/HendryAvila/spikeforge/internal/tools"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// runTool serves a CLI command through the same handler the MCP server
// uses, so both surfaces print identical output.
func (c *cli) runTool(cmd *cobra.Command, pick func(*engine.Engine) toolHandler, args map[string]any) error {
	app, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := pick(app.Engine)(cmd.Context(), req)
	if err != nil {
		return err
	}

	text := resultText(res)
	if res.IsError {
		fmt.Fprintln(cmd.ErrOrStderr(), text)
		return errReported
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func paramArgs(params map[string]string) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "f", tools.FormatMarkdown, "output format: markdown or json")
}

func newDiscoverCmd(c *cli) *cobra.Command {
	var (
		limit, offset int
		format        string
	)
	cmd := &cobra.Command{
		Use:     "discover [query]",
		Aliases: []string{"ls"},
		Short:   "Browse the catalog, optionally ranked by a query",
		Example: `  spikeforge discover
  spikeforge discover "typed bullmq worker" --limit 5
  spikeforge discover --offset 20 -f json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{
				"limit":  float64(limit),
				"offset": float64(offset),
				"format": format,
			}
			if len(args) == 1 {
				a["query"] = args[0]
			}
			return c.runTool(cmd, func(e *engine.Engine) toolHandler { return tools.NewDiscoverTool(e).Handle }, a)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", engine.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	addFormatFlag(cmd, &format)
	return cmd
}

func newSelectCmd(c *cli) *cobra.Command {
	var (
		library, language, style, pattern string
		format                            string
	)
	cmd := &cobra.Command{
		Use:   "select <task...>",
		Short: "Pick the best spike for a task",
		Example: `  spikeforge select "secure plugin for elysia with helmet"
  spikeforge select background jobs --library bullmq --language javascript`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTool(cmd, func(e *engine.Engine) toolHandler { return tools.NewSelectTool(e).Handle }, map[string]any{
				"task":     strings.Join(args, " "),
				"library":  library,
				"language": language,
				"style":    style,
				"pattern":  pattern,
				"format":   format,
			})
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "only consider spikes mentioning this library")
	cmd.Flags().StringVar(&language, "language", "", "only consider spikes mentioning this language")
	cmd.Flags().StringVar(&style, "style", "", "only consider spikes mentioning this style")
	cmd.Flags().StringVar(&pattern, "pattern", "", "only consider spikes mentioning this pattern")
	addFormatFlag(cmd, &format)
	return cmd
}

func newExplainCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Summarize a spike without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTool(cmd, func(e *engine.Engine) toolHandler { return tools.NewExplainTool(e).Handle }, map[string]any{
				"id":     args[0],
				"format": format,
			})
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newPreviewCmd(c *cli) *cobra.Command {
	var (
		params map[string]string
		format string
	)
	cmd := &cobra.Command{
		Use:     "preview <id>",
		Short:   "Render a spike without writing anything",
		Example: `  spikeforge preview synth-hono-route-typed-typescript -p name=orders -p port=8080`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTool(cmd, func(e *engine.Engine) toolHandler { return tools.NewPreviewTool(e).Handle }, map[string]any{
				"id":     args[0],
				"params": paramArgs(params),
				"format": format,
			})
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "parameter binding name=value (repeatable)")
	addFormatFlag(cmd, &format)
	return cmd
}

func newApplyCmd(c *cli) *cobra.Command {
	var (
		params   map[string]string
		strategy string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Print an application plan for a spike",
		Long: `Print the plan for applying a spike: rendered files, a plan id and the
write strategy. No files are written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTool(cmd, func(e *engine.Engine) toolHandler { return tools.NewApplyTool(e).Handle }, map[string]any{
				"id":       args[0],
				"params":   paramArgs(params),
				"strategy": strategy,
				"format":   format,
			})
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "parameter binding name=value (repeatable)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(engine.StrategyCreate), "create, overwrite or patch")
	addFormatFlag(cmd, &format)
	return cmd
}
