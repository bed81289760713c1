package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
)

// ExplainTool handles the spike_explain MCP tool.
type ExplainTool struct {
	eng *engine.Engine
}

// NewExplainTool creates an ExplainTool with its dependencies.
func NewExplainTool(eng *engine.Engine) *ExplainTool {
	return &ExplainTool{eng: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *ExplainTool) Definition() mcp.Tool {
	return mcp.NewTool("spike_explain",
		mcp.WithDescription(
			"Summarize a single spike: what it is for, its stack and tags, the parameters "+
				"it accepts and the files it would produce. Cheaper than spike_preview "+
				"because nothing is rendered.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spike identifier."),
		),
		withFormat(),
	)
}

// Handle processes the spike_explain tool call.
func (t *ExplainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return invalidArgument("'id' is required"), nil
	}
	format, err := formatArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	ex, err := t.eng.Explain(ctx, id)
	if err != nil {
		return lookupError(ctx, t.eng, id, err)
	}
	if format == FormatJSON {
		return jsonResult(ex)
	}

	m := ex.Metadata
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", m.Name)
	if m.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", m.Description)
	}
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", m.ID)
	fmt.Fprintf(&sb, "- **Source**: %s\n", ex.Source)
	if m.Version != "" {
		fmt.Fprintf(&sb, "- **Version**: %s\n", m.Version)
	}
	if ex.Tuple != nil {
		fmt.Fprintf(&sb, "- **Library**: %s · **Pattern**: %s · **Style**: %s · **Language**: %s\n",
			ex.Tuple.Library, ex.Tuple.Pattern, ex.Tuple.Style, ex.Tuple.Language)
	}
	if len(m.Stack) > 0 {
		fmt.Fprintf(&sb, "- **Stack**: %s\n", strings.Join(m.Stack, ", "))
	}
	if len(m.Tags) > 0 {
		fmt.Fprintf(&sb, "- **Tags**: %s\n", strings.Join(m.Tags, ", "))
	}
	fmt.Fprintf(&sb, "- **Complexity**: %.2f\n\n", ex.Complexity)

	if len(ex.Params) > 0 {
		sb.WriteString("## Parameters\n\n")
		for _, p := range ex.Params {
			line := fmt.Sprintf("- `%s`", p.Name)
			if p.Required {
				line += " (required)"
			}
			if p.Description != "" {
				line += ": " + p.Description
			}
			if p.Default != "" {
				line += fmt.Sprintf(" [default: %q]", p.Default)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Files (%d)\n\n", len(ex.Files))
	for _, f := range ex.Files {
		fmt.Fprintf(&sb, "- `%s`\n", f)
	}
	if len(ex.Patches) > 0 {
		fmt.Fprintf(&sb, "\n## Patches (%d)\n\n", len(ex.Patches))
		for _, p := range ex.Patches {
			fmt.Fprintf(&sb, "- `%s`\n", p)
		}
	}
	if len(ex.Tokens) > 0 {
		fmt.Fprintf(&sb, "\nPlaceholders: %s\n", strings.Join(ex.Tokens, ", "))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
