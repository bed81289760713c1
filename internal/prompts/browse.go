package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// BrowsePrompt handles the spike-browse MCP prompt.
type BrowsePrompt struct{}

// NewBrowsePrompt creates a BrowsePrompt.
func NewBrowsePrompt() *BrowsePrompt {
	return &BrowsePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *BrowsePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spike-browse",
		mcp.WithPromptDescription(
			"Browse the spike catalog and explain the most relevant entries.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Optional topic to rank by, e.g. 'realtime' or 'validation'"),
		),
	)
}

// Handle processes the spike-browse prompt request.
func (p *BrowsePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := strings.TrimSpace(req.Params.Arguments["topic"])

	discover := "Run `spike_discover` with limit=10"
	if topic != "" {
		discover = fmt.Sprintf("Run `spike_discover` with query=%q and limit=10", topic)
	}

	return &mcp.GetPromptResult{
		Description: "Browse spikes",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Show me what the spike catalog offers.\n\n" +
						"Please:\n" +
						"1. " + discover + "\n" +
						"2. Run `spike_explain` on the top 3 entries\n" +
						"3. Present them side by side: stack, files produced, parameters\n" +
						"4. Ask me which one I want to preview",
				),
			},
		},
	}, nil
}
