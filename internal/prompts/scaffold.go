// Package prompts implements MCP prompt handlers for the spike catalog.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a specific sequence of tool calls. Unlike tools,
// prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ScaffoldPrompt handles the spike-scaffold MCP prompt.
// It walks the AI through select, preview and apply for one task.
type ScaffoldPrompt struct{}

// NewScaffoldPrompt creates a ScaffoldPrompt.
func NewScaffoldPrompt() *ScaffoldPrompt {
	return &ScaffoldPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ScaffoldPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spike-scaffold",
		mcp.WithPromptDescription(
			"Scaffold code for a task from the spike catalog. "+
				"Picks the best spike, previews it with you, then writes the files.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("What you want to build, in your own words"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Module name used in generated paths. Default: chosen by the spike"),
		),
		mcp.WithArgument("strategy",
			mcp.ArgumentDescription("How to meet existing files: 'create' (default), 'overwrite' or 'patch'"),
		),
	)
}

// Handle processes the spike-scaffold prompt request.
func (p *ScaffoldPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	task := strings.TrimSpace(args["task"])
	if task == "" {
		return nil, fmt.Errorf("argument 'task' is required")
	}
	strategy := "create"
	if s := strings.TrimSpace(args["strategy"]); s != "" {
		strategy = s
	}
	params := "{}"
	if name := strings.TrimSpace(args["name"]); name != "" {
		params = fmt.Sprintf(`{"name": %q}`, name)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Scaffold: %s", task),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to scaffold this: %s\n\n"+
						"Please:\n"+
						"1. Run `spike_select` with task=%q\n"+
						"2. If it returns clarifying questions, ask me them and run `spike_select` again with my answers as constraints\n"+
						"3. Run `spike_preview` on the best match with params=%s and show me the file list\n"+
						"4. Once I confirm, run `spike_apply` with strategy='%s' and write the files it returns into my project\n"+
						"5. Summarize what was created and any unbound tokens I still need to fill in",
					task, task, params, strategy,
				)),
			},
		},
	}, nil
}
