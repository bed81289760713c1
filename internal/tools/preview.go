package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
)

// PreviewTool handles the spike_preview MCP tool.
// It renders a spike without touching the filesystem.
type PreviewTool struct {
	eng *engine.Engine
}

// NewPreviewTool creates a PreviewTool with its dependencies.
func NewPreviewTool(eng *engine.Engine) *PreviewTool {
	return &PreviewTool{eng: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *PreviewTool) Definition() mcp.Tool {
	return mcp.NewTool("spike_preview",
		mcp.WithDescription(
			"Render a spike's files and patches with the given parameters. Nothing is "+
				"written to disk. Use this to show the user what a spike would add before "+
				"calling spike_apply.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spike identifier, e.g. 'synth-hono-route-typed-typescript'."),
		),
		withParams(),
		withFormat(),
	)
}

// Handle processes the spike_preview tool call.
func (t *PreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return invalidArgument("'id' is required. Use spike_discover or spike_select to find one"), nil
	}
	format, err := formatArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	params, err := paramsArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	p, err := t.eng.Preview(ctx, id, params)
	if err != nil {
		return lookupError(ctx, t.eng, id, err)
	}
	if format == FormatJSON {
		return jsonResult(p)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Preview: %s\n\n", p.Name)
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", p.ID)
	fmt.Fprintf(&sb, "- **Source**: %s\n", p.Source)
	if p.Version != "" {
		fmt.Fprintf(&sb, "- **Version**: %s\n", p.Version)
	}
	sb.WriteString("\n")
	writeRendered(&sb, p)
	return mcp.NewToolResultText(sb.String()), nil
}
