// Package tools implements the MCP tool handlers of the spike catalog.
//
// Each tool is a struct holding its dependencies with two methods:
// Definition returns the mcp.Tool schema and Handle serves a call.
// User-level failures (unknown ids, bad arguments) come back as tool
// error results of the form "[Kind] message"; a Go error is returned
// only when the request itself cannot be served.
package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/engine"
)

// Output formats accepted by the "format" argument.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// KindInvalidArgument tags argument validation failures.
const KindInvalidArgument = "InvalidArgument"

func withFormat() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Response format: 'markdown' (default, for reading) or 'json' (for programmatic use)."),
		mcp.Enum(FormatMarkdown, FormatJSON),
	)
}

func withParams() mcp.ToolOption {
	return mcp.WithObject("params",
		mcp.Description("Substitution values for {{token}} placeholders, as an object of strings. "+
			"Missing values fall back to the spike's declared defaults; anything still unbound renders empty."),
	)
}

func formatArg(req mcp.CallToolRequest) (string, error) {
	f := strings.ToLower(strings.TrimSpace(req.GetString("format", FormatMarkdown)))
	switch f {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (use markdown or json)", f)
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// paramsArg reads the "params" argument. Clients that cannot send nested
// objects may pass the same object as a JSON string.
func paramsArg(req mcp.CallToolRequest) (map[string]string, error) {
	raw, ok := req.GetArguments()["params"]
	if !ok || raw == nil {
		return nil, nil
	}
	if s, isString := raw.(string); isString {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, fmt.Errorf("'params' is not a JSON object: %w", err)
		}
		raw = obj
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("'params' must be an object of string values")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			out[k] = v
		case float64, bool:
			out[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("param %q must be a string, number or boolean", k)
		}
	}
	return out, nil
}

func invalidArgument(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", KindInvalidArgument, fmt.Sprintf(format, args...)))
}

// lookupError turns a failed single-spike resolution into a tool error.
// Identifiers that do not exist get "did you mean" suggestions.
func lookupError(ctx context.Context, eng *engine.Engine, id string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	kind := catalog.KindOf(err)
	msg := err.Error()
	var ce *catalog.Error
	if errors.As(err, &ce) && ce.Err != nil {
		msg = fmt.Sprintf("%q: %v", ce.ID, ce.Err)
	}
	if kind == "" {
		kind = catalog.KindMetadataLoadFailure
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", kind, msg)
	if kind != catalog.KindMetadataLoadFailure {
		if sugg := eng.Suggest(ctx, id); len(sugg) > 0 {
			sb.WriteString("\n\nDid you mean:\n")
			for _, s := range sugg {
				fmt.Fprintf(&sb, "- `%s`\n", s)
			}
		}
	}
	return mcp.NewToolResultError(sb.String()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// fence wraps body in a code fence long enough not to collide with any
// fence inside it.
func fence(lang, body string) string {
	marker := "```"
	for strings.Contains(body, marker) {
		marker += "`"
	}
	return marker + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + marker + "\n"
}

// langOf guesses a fence language from a file path.
func langOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".tsx"):
		return "ts"
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return "js"
	case strings.HasSuffix(path, ".json"):
		return "json"
	case strings.HasSuffix(path, ".md"):
		return "md"
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return "yaml"
	}
	return ""
}

// writeRendered appends the files and patches of a rendered spike.
func writeRendered(sb *strings.Builder, p *engine.Preview) {
	if len(p.Params) > 0 {
		sb.WriteString("## Parameters\n\n")
		for _, k := range slices.Sorted(maps.Keys(p.Params)) {
			fmt.Fprintf(sb, "- `%s` = %q\n", k, p.Params[k])
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(sb, "## Files (%d)\n\n", len(p.Files))
	for _, f := range p.Files {
		fmt.Fprintf(sb, "### `%s`\n\n", f.Path)
		sb.WriteString(fence(langOf(f.Path), f.Content))
		sb.WriteString("\n")
	}

	if len(p.Patches) > 0 {
		fmt.Fprintf(sb, "## Patches (%d)\n\n", len(p.Patches))
		for _, pt := range p.Patches {
			fmt.Fprintf(sb, "### `%s`\n\n", pt.Path)
			sb.WriteString(fence("diff", pt.Diff))
			sb.WriteString("\n")
		}
	}

	if len(p.Missing) > 0 {
		fmt.Fprintf(sb, "⚠️ Unbound tokens rendered empty: %s\n", strings.Join(p.Missing, ", "))
	}
}
