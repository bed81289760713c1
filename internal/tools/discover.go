package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
)

// DiscoverTool handles the spike_discover MCP tool.
// It pages through the catalog, ranked by a free-text query when given.
type DiscoverTool struct {
	eng *engine.Engine
}

// NewDiscoverTool creates a DiscoverTool with its dependencies.
func NewDiscoverTool(eng *engine.Engine) *DiscoverTool {
	return &DiscoverTool{eng: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *DiscoverTool) Definition() mcp.Tool {
	return mcp.NewTool("spike_discover",
		mcp.WithDescription(
			"Browse the spike catalog. With a query, spikes are ranked by how many query "+
				"tokens their name, description, tags and stack contain. Without one, spikes "+
				"are listed in catalog order (local overrides first). Use the offset from "+
				"the footer to fetch the next page.",
		),
		mcp.WithString("query",
			mcp.Description("Free-text description of what you are looking for, in any language. "+
				"Example: 'typed bullmq worker with retries'."),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Page size (default %d, max %d).", engine.DefaultPageSize, engine.MaxPageSize)),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of entries to skip (default 0)."),
		),
		withFormat(),
	)
}

// Handle processes the spike_discover tool call.
func (t *DiscoverTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := formatArg(req)
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	limit := intArg(req, "limit", engine.DefaultPageSize)
	offset := intArg(req, "offset", 0)
	if offset < 0 {
		return invalidArgument("'offset' must not be negative"), nil
	}

	res, err := t.eng.Discover(ctx, req.GetString("query", ""), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("discovering spikes: %w", err)
	}
	if format == FormatJSON {
		return jsonResult(res)
	}

	var sb strings.Builder
	sb.WriteString("# Spike Catalog\n\n")
	if res.Query != "" {
		fmt.Fprintf(&sb, "Query: **%s**\n\n", res.Query)
	}

	if len(res.Items) == 0 {
		if res.Query != "" {
			sb.WriteString("_No spikes matched this query. Try broader words or `spike_select` with a task description._\n")
		} else {
			sb.WriteString("_No spikes on this page._\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	if res.Query != "" {
		sb.WriteString("| # | ID | Name | Score |\n|---|----|------|-------|\n")
	} else {
		sb.WriteString("| # | ID | Name | Files |\n|---|----|------|-------|\n")
	}
	for i, c := range res.Items {
		last := fmt.Sprintf("%d", c.Metadata.FileCount)
		if res.Query != "" {
			last = fmt.Sprintf("%.2f", c.Score)
			if c.Alias {
				last += " (alias)"
			}
		}
		fmt.Fprintf(&sb, "| %d | `%s` | %s | %s |\n", res.Offset+i+1, c.ID, c.Metadata.Name, last)
	}

	fmt.Fprintf(&sb, "\n📊 Showing %d-%d of %d", res.Offset+1, res.Offset+len(res.Items), res.Total)
	if res.HasMore {
		fmt.Fprintf(&sb, " · next page: offset=%d", res.NextOffset)
	}
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}
