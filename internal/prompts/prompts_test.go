package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptReq(args map[string]string) mcp.GetPromptRequest {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = args
	return req
}

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Messages[0].Content)
	}
	return tc.Text
}

func TestScaffoldPrompt_Handle(t *testing.T) {
	p := NewScaffoldPrompt()
	if p.Definition().Name != "spike-scaffold" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	res, err := p.Handle(context.Background(), promptReq(map[string]string{
		"task": "typed hono routes",
		"name": "orders",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	for _, want := range []string{
		"`spike_select` with task=\"typed hono routes\"",
		`params={"name": "orders"}`,
		"strategy='create'",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestScaffoldPrompt_RequiresTask(t *testing.T) {
	if _, err := NewScaffoldPrompt().Handle(context.Background(), promptReq(nil)); err == nil {
		t.Fatal("expected error without task")
	}
}

func TestBrowsePrompt_Topic(t *testing.T) {
	p := NewBrowsePrompt()

	res, err := p.Handle(context.Background(), promptReq(map[string]string{"topic": "realtime"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, `query="realtime"`) {
		t.Errorf("topic not used:\n%s", text)
	}

	res, err = p.Handle(context.Background(), promptReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if text := promptText(t, res); strings.Contains(text, "query=") {
		t.Errorf("no topic should list without query:\n%s", text)
	}
}
