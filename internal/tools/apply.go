package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
)

// ApplyTool handles the spike_apply MCP tool.
// It returns a plan: the rendered spike tagged with a plan id and a write
// strategy. The host writes the files; the server never does.
type ApplyTool struct {
	eng *engine.Engine
}

// NewApplyTool creates an ApplyTool with its dependencies.
func NewApplyTool(eng *engine.Engine) *ApplyTool {
	return &ApplyTool{eng: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *ApplyTool) Definition() mcp.Tool {
	strategies := make([]string, len(engine.Strategies))
	for i, s := range engine.Strategies {
		strategies[i] = string(s)
	}
	return mcp.NewTool("spike_apply",
		mcp.WithDescription(
			"Produce an application plan for a spike: the rendered files (and patches, "+
				"for the 'patch' strategy) plus a plan id. The server does NOT write files. "+
				"After calling this, write each file into the project yourself, honoring the "+
				"strategy: 'create' skips files that already exist, 'overwrite' replaces them, "+
				"'patch' also applies the listed unified diffs.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spike identifier."),
		),
		withParams(),
		mcp.WithString("strategy",
			mcp.Description("How files meet the existing tree (default 'create')."),
			mcp.Enum(strategies...),
		),
		withFormat(),
	)
}

// Handle processes the spike_apply tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return invalidArgument("'id' is required"), nil
	}
	format, err := formatArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	params, err := paramsArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	strategy, err := engine.ParseStrategy(req.GetString("strategy", ""))
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	plan, err := t.eng.Apply(ctx, id, params, strategy)
	if err != nil {
		return lookupError(ctx, t.eng, id, err)
	}
	if format == FormatJSON {
		return jsonResult(plan)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Plan: %s\n\n", plan.Name)
	fmt.Fprintf(&sb, "- **Plan ID**: `%s`\n", plan.PlanID)
	fmt.Fprintf(&sb, "- **Spike**: `%s` (%s)\n", plan.ID, plan.Source)
	fmt.Fprintf(&sb, "- **Strategy**: %s\n", plan.Strategy)
	fmt.Fprintf(&sb, "- **Created**: %s\n\n", plan.CreatedAt)
	writeRendered(&sb, &plan.Preview)

	sb.WriteString("\n## Next Steps\n\n")
	switch plan.Strategy {
	case engine.StrategyOverwrite:
		sb.WriteString("Write every file above, replacing existing files at the same paths.\n")
	case engine.StrategyPatch:
		sb.WriteString("Write every new file above, then apply each patch to its target file.\n")
	default:
		sb.WriteString("Write every file above that does not exist yet. Leave existing files untouched.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
