package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/match"
	"github.com/HendryAvila/spikeforge/internal/render"
)

const (
	// DefaultPageSize is used when Discover is called without a limit.
	DefaultPageSize = 20
	// MaxPageSize caps a single Discover page.
	MaxPageSize = 100
	// MaxSuggestions bounds "did you mean" lists.
	MaxSuggestions = 5
)

// timeNow is replaceable in tests.
var timeNow = time.Now

// DiscoverResult is one page of catalog entries.
type DiscoverResult struct {
	Query      string            `json:"query,omitempty"`
	Items      []match.Candidate `json:"items"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	HasMore    bool              `json:"has_more"`
	NextOffset int               `json:"next_offset,omitempty"`
}

// Discover pages through the catalog. With a query the entries are ranked
// by score; without one they are listed in catalog order.
func (e *Engine) Discover(ctx context.Context, query string, limit, offset int) (*DiscoverResult, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	offset = max(offset, 0)

	res := &DiscoverResult{Query: query, Limit: limit, Offset: offset}

	if strings.TrimSpace(query) != "" {
		ranked, _, err := e.selector.Rank(ctx, query, match.Constraints{})
		if err != nil {
			return nil, err
		}
		res.Total = len(ranked)
		res.Items = page(ranked, offset, limit)
	} else {
		var ids []string
		total := 0
		for id := range e.IDs(ctx) {
			if total >= offset && len(ids) < limit {
				ids = append(ids, id)
			}
			total++
		}
		res.Total = total
		res.Items = make([]match.Candidate, 0, len(ids))
		for _, id := range ids {
			m, err := e.Metadata(ctx, id)
			if err != nil {
				logging.Warn().Str("id", id).Err(err).Msg("skipping template: metadata load failed")
				e.rec.Skipped()
				continue
			}
			res.Items = append(res.Items, match.Candidate{ID: id, Metadata: m})
		}
	}

	if end := offset + limit; end < res.Total {
		res.HasMore = true
		res.NextOffset = end
	}
	return res, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

// Preview renders a spike without side effects.
type Preview struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Source  catalog.Source `json:"source"`
	Version string         `json:"version,omitempty"`
	render.Result
}

// Preview resolves id and renders it with params over the defaults.
func (e *Engine) Preview(ctx context.Context, id string, params map[string]string) (*Preview, error) {
	r, err := e.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Preview{
		ID:      r.Definition.ID,
		Name:    r.Definition.Name,
		Source:  r.Source,
		Version: r.Definition.Version,
		Result:  render.Definition(r.Definition, params),
	}, nil
}

// Strategy says how a plan's files should meet an existing tree.
type Strategy string

const (
	// StrategyCreate writes new files only; existing files are left alone.
	StrategyCreate Strategy = "create"
	// StrategyOverwrite replaces existing files.
	StrategyOverwrite Strategy = "overwrite"
	// StrategyPatch writes new files and applies the spike's patches.
	StrategyPatch Strategy = "patch"
)

// Strategies lists the accepted values.
var Strategies = []Strategy{StrategyCreate, StrategyOverwrite, StrategyPatch}

// ParseStrategy accepts the empty string as StrategyCreate.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyCreate, nil
	}
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Strategies, st) {
		return "", fmt.Errorf("unknown strategy %q (use create, overwrite or patch)", s)
	}
	return st, nil
}

// Plan is a preview tagged for application. Writing files is the caller's
// job.
type Plan struct {
	PlanID    string   `json:"plan_id"`
	Strategy  Strategy `json:"strategy"`
	Overwrite bool     `json:"overwrite"`
	CreatedAt string   `json:"created_at"`
	Preview
}

// Apply builds a plan. Patches are only kept for StrategyPatch.
func (e *Engine) Apply(ctx context.Context, id string, params map[string]string, strategy Strategy) (*Plan, error) {
	if !slices.Contains(Strategies, strategy) {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	p, err := e.Preview(ctx, id, params)
	if err != nil {
		return nil, err
	}
	if strategy != StrategyPatch {
		p.Patches = nil
	}
	return &Plan{
		PlanID:    uuid.NewString(),
		Strategy:  strategy,
		Overwrite: strategy == StrategyOverwrite,
		CreatedAt: timeNow().UTC().Format(time.RFC3339),
		Preview:   *p,
	}, nil
}

// Explanation describes a single spike.
type Explanation struct {
	Metadata   catalog.Metadata `json:"metadata"`
	Source     catalog.Source   `json:"source"`
	Params     []catalog.Param  `json:"params,omitempty"`
	Files      []string         `json:"files"`
	Patches    []string         `json:"patches,omitempty"`
	Tokens     []string         `json:"tokens,omitempty"`
	Complexity float64          `json:"complexity"`
	// Tuple is set for identifiers in the synthesized space.
	Tuple *catalog.Tuple `json:"tuple,omitempty"`
}

// Explain resolves id and summarizes it without rendering.
func (e *Engine) Explain(ctx context.Context, id string) (*Explanation, error) {
	r, err := e.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	def := r.Definition

	ex := &Explanation{
		Metadata:   def.Metadata(),
		Source:     r.Source,
		Params:     def.Params,
		Complexity: catalog.Complexity(def),
	}
	var tokens []string
	for _, f := range def.Files {
		ex.Files = append(ex.Files, f.Path)
		tokens = append(tokens, render.Tokens(f.Path+"\n"+f.Content)...)
	}
	for _, p := range def.Patches {
		ex.Patches = append(ex.Patches, p.Path)
		tokens = append(tokens, render.Tokens(p.Path+"\n"+p.Diff)...)
	}
	slices.Sort(tokens)
	ex.Tokens = slices.Compact(tokens)

	if _, t, err := catalog.Decode(id); err == nil && t.Validate() == nil {
		ex.Tuple = &t
	}
	return ex, nil
}

// AutoSelect picks the best spike for a task. No match is a valid outcome,
// reported through a nil Selection.Best.
func (e *Engine) AutoSelect(ctx context.Context, task string, c match.Constraints) (*match.Selection, error) {
	sel, err := e.selector.Select(ctx, task, c)
	if err != nil {
		return nil, err
	}
	e.rec.Selected(sel.Best != nil, sel.Confidence)
	return sel, nil
}

// Suggest returns up to MaxSuggestions catalog ids resembling id. Only the
// last segment of a path-like id is matched.
func (e *Engine) Suggest(ctx context.Context, id string) []string {
	query := strings.ToLower(id)
	if i := strings.LastIndexAny(query, `/\`); i >= 0 {
		query = query[i+1:]
	}
	ids := slices.Collect(e.IDs(ctx))
	matches := fuzzy.Find(query, ids)
	out := make([]string, 0, MaxSuggestions)
	for _, m := range matches {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
