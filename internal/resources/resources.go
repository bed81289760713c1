// Package resources implements MCP resource handlers for the spike catalog.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (spikes://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spikeforge/internal/engine"
)

const (
	// StatsURI addresses the catalog statistics resource.
	StatsURI = "spikes://catalog/stats"
	// TemplatePrefix is the fixed part of spikes://template/{id}.
	TemplatePrefix = "spikes://template/"
)

// Handler manages spike resource endpoints.
type Handler struct {
	eng *engine.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// StatsResource returns the MCP resource definition for catalog stats.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Spike Catalog Stats",
		mcp.WithResourceDescription("Identifier space size, override count and cache activity"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the catalog statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.eng.Stats(ctx))
}

// TemplateResource returns the resource template exposing raw definitions.
func (h *Handler) TemplateResource() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		TemplatePrefix+"{id}",
		"Spike Definition",
		mcp.WithTemplateDescription("Unrendered spike definition with its {{token}} placeholders"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleTemplate returns the resolved definition for the id in the URI.
// Lookup failures are reported in the resource body, not as protocol errors.
func (h *Handler) HandleTemplate(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, TemplatePrefix)
	if id == "" || id == uri {
		return errorResource(uri, "missing spike id"), nil
	}

	def, err := h.eng.Definition(ctx, id)
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}
	return jsonResource(uri, def)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
