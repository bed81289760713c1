package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
	"github.com/HendryAvila/spikeforge/internal/match"
)

// SelectTool handles the spike_select MCP tool.
// It picks the single best spike for a task description.
type SelectTool struct {
	eng *engine.Engine
}

// NewSelectTool creates a SelectTool with its dependencies.
func NewSelectTool(eng *engine.Engine) *SelectTool {
	return &SelectTool{eng: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *SelectTool) Definition() mcp.Tool {
	return mcp.NewTool("spike_select",
		mcp.WithDescription(
			"Pick the best spike for a task described in natural language (any language). "+
				"Returns the best match with a confidence in [0,1] and a shortlist. When "+
				"confidence is low, clarifying questions are returned: ask the user, then "+
				"call again with a more specific task or with constraints. No match is a "+
				"normal outcome, not an error.",
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("What the user wants to build, e.g. 'secure plugin for elysia with helmet and rate-limit'."),
		),
		mcp.WithString("library", mcp.Description("Only consider spikes mentioning this library.")),
		mcp.WithString("language", mcp.Description("Only consider spikes mentioning this language.")),
		mcp.WithString("style", mcp.Description("Only consider spikes mentioning this style.")),
		mcp.WithString("pattern", mcp.Description("Only consider spikes mentioning this pattern.")),
		withFormat(),
	)
}

// Handle processes the spike_select tool call.
func (t *SelectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := strings.TrimSpace(req.GetString("task", ""))
	if task == "" {
		return invalidArgument("'task' is required. Describe what you want to build"), nil
	}
	format, err := formatArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	c := match.Constraints{
		Library:  req.GetString("library", ""),
		Language: req.GetString("language", ""),
		Style:    req.GetString("style", ""),
		Pattern:  req.GetString("pattern", ""),
	}

	sel, err := t.eng.AutoSelect(ctx, task, c)
	if err != nil {
		return nil, fmt.Errorf("selecting spike: %w", err)
	}
	if format == FormatJSON {
		return jsonResult(sel)
	}

	var sb strings.Builder
	sb.WriteString("# Spike Selection\n\n")
	if sel.Best == nil {
		sb.WriteString("No matching spike found.\n\n")
	} else {
		fmt.Fprintf(&sb, "**Best match**: `%s` (%s)\n\n", sel.Best.ID, sel.Best.Metadata.Name)
		fmt.Fprintf(&sb, "**Confidence**: %.2f\n\n", sel.Confidence)
	}

	if len(sel.Shortlist) > 1 {
		sb.WriteString("## Shortlist\n\n| ID | Score |\n|----|-------|\n")
		for _, cand := range sel.Shortlist {
			score := fmt.Sprintf("%.2f", cand.Score)
			if cand.Alias {
				score += " (alias)"
			}
			fmt.Fprintf(&sb, "| `%s` | %s |\n", cand.ID, score)
		}
		sb.WriteString("\n")
	}

	if len(sel.Questions) > 0 {
		sb.WriteString("## Clarifying Questions\n\n")
		for _, q := range sel.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}
	if sel.Fallback == match.FallbackDiscover {
		sb.WriteString("Confidence is low. Ask the questions above or browse with `spike_discover`.\n")
	} else if sel.Best != nil {
		fmt.Fprintf(&sb, "Next: `spike_preview` with id=`%s`.\n", sel.Best.ID)
	}
	fmt.Fprintf(&sb, "\n🔎 %d spikes considered · tokens: %s\n", sel.Considered, strings.Join(sel.Tokens, " "))
	return mcp.NewToolResultText(sb.String()), nil
}
