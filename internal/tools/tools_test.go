package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/engine"
	"github.com/HendryAvila/spikeforge/internal/match"
	"github.com/HendryAvila/spikeforge/internal/overrides"
)

// --- Test helpers ---

func newEngine(t *testing.T, defs ...*catalog.Definition) *engine.Engine {
	t.Helper()
	store := overrides.NewFileStore(t.TempDir())
	for _, d := range defs {
		if err := store.Put(context.Background(), d); err != nil {
			t.Fatalf("setup: put %s: %v", d.ID, err)
		}
	}
	return engine.New(engine.DefaultConfig(), engine.WithStore(store))
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

const synthID = "synth-hono-route-typed-typescript"

var curated = &catalog.Definition{
	ID:   "team-api",
	Name: "Team API",
	Params: []catalog.Param{
		{Name: "name", Default: "demo", Required: true},
	},
	Files: []catalog.FileTemplate{
		{Path: "src/{{name}}.ts", Content: "// {{name}} by {{owner}}\n"},
	},
	Patches: []catalog.Patch{
		{Path: "package.json", Diff: "+  \"{{name}}\": \"1.0.0\"\n"},
	},
}

// --- Definitions ---

func TestDefinitions_Names(t *testing.T) {
	eng := newEngine(t)
	want := map[string]mcp.Tool{
		"spike_discover": NewDiscoverTool(eng).Definition(),
		"spike_preview":  NewPreviewTool(eng).Definition(),
		"spike_apply":    NewApplyTool(eng).Definition(),
		"spike_explain":  NewExplainTool(eng).Definition(),
		"spike_select":   NewSelectTool(eng).Definition(),
	}
	for name, def := range want {
		if def.Name != name {
			t.Errorf("tool name = %q, want %q", def.Name, name)
		}
		if def.Description == "" {
			t.Errorf("%s has no description", name)
		}
	}
}

// --- DiscoverTool ---

func TestDiscoverTool_FirstPage(t *testing.T) {
	tool := NewDiscoverTool(newEngine(t, curated))
	result := call(t, tool.Handle, map[string]any{"limit": float64(5)})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "| 1 | `team-api` |") {
		t.Errorf("overrides should be listed first:\n%s", text)
	}
	if !strings.Contains(text, "📊 Showing 1-5 of") || !strings.Contains(text, "next page: offset=5") {
		t.Errorf("missing pagination footer:\n%s", text)
	}
}

func TestDiscoverTool_QueryJSON(t *testing.T) {
	tool := NewDiscoverTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{
		"query":  "typed bullmq worker",
		"limit":  float64(3),
		"format": "json",
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}

	var res engine.DiscoverResult
	if err := json.Unmarshal([]byte(getResultText(result)), &res); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(res.Items) != 3 || !res.HasMore {
		t.Fatalf("items = %d, has_more = %v", len(res.Items), res.HasMore)
	}
	if !strings.HasPrefix(res.Items[0].ID, "synth-bullmq-worker-") {
		t.Errorf("top result = %s, want a bullmq worker", res.Items[0].ID)
	}
}

func TestDiscoverTool_NoMatch(t *testing.T) {
	tool := NewDiscoverTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{"query": "qqqq zzzz"})
	if isErrorResult(result) {
		t.Fatal("no match is not an error")
	}
	if !strings.Contains(getResultText(result), "No spikes matched") {
		t.Errorf("unexpected text:\n%s", getResultText(result))
	}
}

func TestDiscoverTool_BadArguments(t *testing.T) {
	tool := NewDiscoverTool(newEngine(t))
	tests := []map[string]any{
		{"offset": float64(-1)},
		{"format": "xml"},
	}
	for _, args := range tests {
		result := call(t, tool.Handle, args)
		if !isErrorResult(result) || !strings.HasPrefix(getResultText(result), "[InvalidArgument]") {
			t.Errorf("args %v: want InvalidArgument, got %q", args, getResultText(result))
		}
	}
}

// --- PreviewTool ---

func TestPreviewTool_Synthesized(t *testing.T) {
	tool := NewPreviewTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{
		"id":     synthID,
		"params": map[string]any{"name": "orders", "port": float64(8080)},
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"# Preview:", "**Source**: synthesized", "### `src/orders.ts`", "`port` = \"8080\""} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "{{name}}") {
		t.Error("tokens should be rendered")
	}
}

func TestPreviewTool_ParamsAsJSONString(t *testing.T) {
	tool := NewPreviewTool(newEngine(t, curated))
	result := call(t, tool.Handle, map[string]any{
		"id":     "team-api",
		"params": `{"name": "billing", "owner": "ana"}`,
		"format": "json",
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	var p engine.Preview
	if err := json.Unmarshal([]byte(getResultText(result)), &p); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if p.Source != catalog.SourceOverride {
		t.Errorf("source = %s", p.Source)
	}
	if len(p.Files) != 1 || p.Files[0].Path != "src/billing.ts" || p.Files[0].Content != "// billing by ana\n" {
		t.Errorf("files = %+v", p.Files)
	}
	if len(p.Missing) != 0 {
		t.Errorf("missing = %v", p.Missing)
	}
}

func TestPreviewTool_ReportsUnboundTokens(t *testing.T) {
	tool := NewPreviewTool(newEngine(t, curated))
	text := getResultText(call(t, tool.Handle, map[string]any{"id": "team-api"}))
	if !strings.Contains(text, "⚠️ Unbound tokens rendered empty: owner") {
		t.Errorf("missing warning:\n%s", text)
	}
	if !strings.Contains(text, "// demo by \n") {
		t.Errorf("defaults not applied:\n%s", text)
	}
}

func TestPreviewTool_Errors(t *testing.T) {
	tool := NewPreviewTool(newEngine(t))
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing id", map[string]any{}, "[InvalidArgument]"},
		{"bad params", map[string]any{"id": synthID, "params": []any{"x"}}, "[InvalidArgument]"},
		{"bad param value", map[string]any{"id": synthID, "params": map[string]any{"name": []any{}}}, "[InvalidArgument]"},
		{"not found", map[string]any{"id": "no-such-spike"}, "[NotFound]"},
		{"malformed", map[string]any{"id": "synth-hono-route"}, "[MalformedIdentifier]"},
		{"unknown", map[string]any{"id": "synth-hono-route-typed-typescrip"}, "[UnknownIdentifier]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, tool.Handle, tt.args)
			if !isErrorResult(result) {
				t.Fatal("expected error result")
			}
			if !strings.HasPrefix(getResultText(result), tt.want) {
				t.Errorf("text = %q, want prefix %q", getResultText(result), tt.want)
			}
		})
	}
}

func TestPreviewTool_SuggestsNearbyIDs(t *testing.T) {
	tool := NewPreviewTool(newEngine(t))
	text := getResultText(call(t, tool.Handle, map[string]any{"id": "synth-hono-route-typed-typescrip"}))
	if !strings.Contains(text, "Did you mean:") || !strings.Contains(text, "`"+synthID+"`") {
		t.Errorf("expected suggestion of %s:\n%s", synthID, text)
	}
}

func TestPreviewTool_PathLikeIDIsNotFound(t *testing.T) {
	tool := NewPreviewTool(newEngine(t, curated))
	result := call(t, tool.Handle, map[string]any{"id": "src/team-api"})
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
	text := getResultText(result)
	if !strings.HasPrefix(text, "[NotFound]") {
		t.Errorf("text = %q, want prefix [NotFound]", text)
	}
	if !strings.Contains(text, "Did you mean:") || !strings.Contains(text, "`team-api`") {
		t.Errorf("expected suggestion of team-api:\n%s", text)
	}
}

// --- ApplyTool ---

func TestApplyTool_Strategies(t *testing.T) {
	tool := NewApplyTool(newEngine(t, curated))
	tests := []struct {
		strategy    string
		wantPatches int
		wantNext    string
	}{
		{"", 0, "does not exist yet"},
		{"overwrite", 0, "replacing existing files"},
		{"PATCH", 1, "apply each patch"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			args := map[string]any{"id": "team-api", "strategy": tt.strategy}
			text := getResultText(call(t, tool.Handle, args))
			if !strings.Contains(text, tt.wantNext) {
				t.Errorf("missing next step %q:\n%s", tt.wantNext, text)
			}

			args["format"] = "json"
			var plan engine.Plan
			if err := json.Unmarshal([]byte(getResultText(call(t, tool.Handle, args))), &plan); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if plan.PlanID == "" {
				t.Error("plan id should be set")
			}
			if len(plan.Patches) != tt.wantPatches {
				t.Errorf("patches = %d, want %d", len(plan.Patches), tt.wantPatches)
			}
		})
	}
}

func TestApplyTool_Errors(t *testing.T) {
	tool := NewApplyTool(newEngine(t))

	result := call(t, tool.Handle, map[string]any{"id": synthID, "strategy": "merge"})
	if !isErrorResult(result) || !strings.HasPrefix(getResultText(result), "[InvalidArgument]") {
		t.Errorf("unknown strategy: %q", getResultText(result))
	}

	result = call(t, tool.Handle, map[string]any{"id": "ghost"})
	if !isErrorResult(result) || !strings.HasPrefix(getResultText(result), "[NotFound]") {
		t.Errorf("unknown id: %q", getResultText(result))
	}
}

// --- ExplainTool ---

func TestExplainTool_Synthesized(t *testing.T) {
	tool := NewExplainTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{"id": "synth-elysia-plugin-secure-typescript"})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"**Library**: elysia", "**Pattern**: plugin", "**Complexity**:", "## Files", "`name` (required)"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestExplainTool_OverrideJSON(t *testing.T) {
	tool := NewExplainTool(newEngine(t, curated))
	result := call(t, tool.Handle, map[string]any{"id": "team-api", "format": "json"})
	var ex engine.Explanation
	if err := json.Unmarshal([]byte(getResultText(result)), &ex); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if ex.Tuple != nil {
		t.Error("override outside the synthesized space has no tuple")
	}
	if strings.Join(ex.Tokens, ",") != "name,owner" {
		t.Errorf("tokens = %v", ex.Tokens)
	}
}

// --- SelectTool ---

func TestSelectTool_EndToEnd(t *testing.T) {
	tool := NewSelectTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{
		"task": "secure plugin for elysia: add helmet & rate-limit (typescript)",
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "**Best match**: `synth-elysia-plugin-secure-typescript`") {
		t.Errorf("unexpected best match:\n%s", text)
	}
	if !strings.Contains(text, "spike_preview") {
		t.Errorf("missing next step:\n%s", text)
	}
}

func TestSelectTool_NoMatch(t *testing.T) {
	tool := NewSelectTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{"task": "qqqq zzzz", "format": "json"})
	if isErrorResult(result) {
		t.Fatal("no match is not an error")
	}
	var sel match.Selection
	if err := json.Unmarshal([]byte(getResultText(result)), &sel); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if sel.Best != nil || sel.Fallback != match.FallbackDiscover || len(sel.Questions) == 0 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestSelectTool_Constraints(t *testing.T) {
	tool := NewSelectTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{
		"task":     "background worker",
		"library":  "bullmq",
		"language": "javascript",
		"format":   "json",
	})
	var sel match.Selection
	if err := json.Unmarshal([]byte(getResultText(result)), &sel); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for _, c := range sel.Shortlist {
		if !strings.HasPrefix(c.ID, "synth-bullmq-") || !strings.HasSuffix(c.ID, "-javascript") {
			t.Errorf("constraint violated by %s", c.ID)
		}
	}
}

func TestSelectTool_MissingTask(t *testing.T) {
	tool := NewSelectTool(newEngine(t))
	result := call(t, tool.Handle, map[string]any{"task": "  "})
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
}

// --- helpers ---

func TestFence_LongerThanContent(t *testing.T) {
	got := fence("md", "```js\nx\n```")
	if !strings.HasPrefix(got, "````md\n") || !strings.HasSuffix(got, "\n````\n") {
		t.Errorf("fence = %q", got)
	}
}
