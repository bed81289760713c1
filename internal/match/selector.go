package match

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/logging"
)

// Catalog is what the selector needs from the resolution layer.
type Catalog interface {
	// IDs lists every identifier eligible for ranking.
	IDs(ctx context.Context) iter.Seq[string]
	Metadata(ctx context.Context, id string) (catalog.Metadata, error)
	Definition(ctx context.Context, id string) (*catalog.Definition, error)
}

// Options tune ranking. Zero values fall back to DefaultOptions.
type Options struct {
	Shortlist       int
	BatchMultiplier int
	AliasBoost      float64
	Threshold       float64
	Aliases         bool
	Workers         int
}

// DefaultOptions are small and safe for interactive use.
func DefaultOptions() Options {
	return Options{
		Shortlist:       5,
		BatchMultiplier: 40,
		AliasBoost:      1.0,
		Threshold:       0.35,
		Aliases:         true,
		Workers:         4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Shortlist <= 0 {
		o.Shortlist = d.Shortlist
	}
	if o.BatchMultiplier <= 0 {
		o.BatchMultiplier = d.BatchMultiplier
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

// Constraints narrow AutoSelect. Empty fields match everything.
type Constraints struct {
	Library  string `json:"library,omitempty"`
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
}

// Allows reports whether every set constraint appears in the haystack.
func (c Constraints) Allows(haystack string) bool {
	for _, v := range []string{c.Library, c.Language, c.Style, c.Pattern} {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !strings.Contains(haystack, v) {
			return false
		}
	}
	return true
}

// Candidate is a scored identifier.
type Candidate struct {
	ID       string           `json:"id"`
	Score    float64          `json:"score"`
	Alias    bool             `json:"alias,omitempty"`
	Metadata catalog.Metadata `json:"metadata"`
}

// Selection is the outcome of AutoSelect. Best is nil when nothing matched.
type Selection struct {
	Best       *Candidate  `json:"best,omitempty"`
	Confidence float64     `json:"confidence"`
	Shortlist  []Candidate `json:"shortlist"`
	Questions  []string    `json:"questions,omitempty"`
	Fallback   string      `json:"fallback,omitempty"`
	Tokens     []string    `json:"tokens"`
	Considered int         `json:"considered"`
}

// FallbackDiscover is the action suggested when confidence is low.
const FallbackDiscover = "discover"

// Selector ranks catalog identifiers against task text.
type Selector struct {
	cat       Catalog
	opts      Options
	tokenizer *Tokenizer
	aliases   *AliasResolver

	// onSkip is called for every identifier dropped by a load failure.
	onSkip func(id string, err error)
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithTokenizer replaces the default hint table.
func WithTokenizer(t *Tokenizer) SelectorOption {
	return func(s *Selector) { s.tokenizer = t }
}

// WithAliases replaces the default alias table.
func WithAliases(r *AliasResolver) SelectorOption {
	return func(s *Selector) { s.aliases = r }
}

// WithSkipHook observes metadata load failures.
func WithSkipHook(fn func(id string, err error)) SelectorOption {
	return func(s *Selector) { s.onSkip = fn }
}

// NewSelector creates a selector over cat.
func NewSelector(cat Catalog, opts Options, options ...SelectorOption) *Selector {
	s := &Selector{
		cat:       cat,
		opts:      opts.withDefaults(),
		tokenizer: defaultTokenizer,
		aliases:   MustAliasResolver(DefaultAliases),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the effective options.
func (s *Selector) Options() Options { return s.opts }

// Rank runs Phase 1: it scores metadata for every identifier plus any alias
// targets and returns candidates with score > 0, best first.
func (s *Selector) Rank(ctx context.Context, task string, c Constraints) ([]Candidate, int, error) {
	tokens := s.tokenizer.Tokenize(task)
	if len(tokens) == 0 {
		return nil, 0, nil
	}

	aliasIDs := s.aliasTargets(task)
	aliased := make(map[string]bool, len(aliasIDs))
	for _, id := range aliasIDs {
		aliased[id] = true
	}

	seen := make(map[string]bool)
	var (
		candidates []Candidate
		considered int
		batch      []string
	)
	batchSize := s.opts.Shortlist * s.opts.BatchMultiplier

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		scored, err := s.scoreBatch(ctx, batch, tokens, aliased, c)
		if err != nil {
			return err
		}
		considered += len(batch)
		candidates = append(candidates, scored...)
		batch = batch[:0]
		return nil
	}

	add := func(id string) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		batch = append(batch, id)
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	}

	// Alias targets go first so they are scored even when the enumeration
	// cap would exclude them.
	for _, id := range aliasIDs {
		if err := add(id); err != nil {
			return nil, considered, err
		}
	}
	for id := range s.cat.IDs(ctx) {
		if err := add(id); err != nil {
			return nil, considered, err
		}
	}
	if err := flush(); err != nil {
		return nil, considered, err
	}

	sortCandidates(candidates)
	return candidates, considered, nil
}

// scoreBatch loads metadata for a batch concurrently. Failed loads are logged
// and skipped; only context cancellation aborts.
func (s *Selector) scoreBatch(ctx context.Context, ids, tokens []string, aliased map[string]bool, c Constraints) ([]Candidate, error) {
	results := make([]*Candidate, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			meta, err := s.cat.Metadata(gctx, id)
			if err != nil {
				s.skip(id, err)
				return nil
			}
			hay := meta.Haystack()
			if !c.Allows(hay) {
				return nil
			}
			score := Score(tokens, hay)
			if aliased[id] {
				score += s.opts.AliasBoost
			}
			if score > 0 {
				results[i] = &Candidate{ID: id, Score: score, Alias: aliased[id], Metadata: meta}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(ids))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Select runs both phases and applies the confidence threshold.
func (s *Selector) Select(ctx context.Context, task string, c Constraints) (*Selection, error) {
	sel := &Selection{Tokens: s.tokenizer.Tokenize(task)}

	phase1, considered, err := s.Rank(ctx, task, c)
	if err != nil {
		return nil, err
	}
	sel.Considered = considered

	top := phase1[:min(len(phase1), s.opts.Shortlist)]
	shortlist := make([]Candidate, 0, len(top))
	for _, cand := range top {
		def, err := s.cat.Definition(ctx, cand.ID)
		if err != nil {
			s.skip(cand.ID, err)
			continue
		}
		meta := def.Metadata()
		score := Score(sel.Tokens, meta.Haystack())
		if cand.Alias {
			score += s.opts.AliasBoost
		}
		shortlist = append(shortlist, Candidate{ID: cand.ID, Score: score, Alias: cand.Alias, Metadata: meta})
	}
	sortCandidates(shortlist)
	sel.Shortlist = shortlist

	if len(shortlist) > 0 {
		best := shortlist[0]
		sel.Best = &best
		sel.Confidence = min(1, best.Score)
	}
	if sel.Best == nil || sel.Confidence < s.opts.Threshold {
		sel.Questions = clarifyingQuestions(sel.Tokens)
		sel.Fallback = FallbackDiscover
	}
	return sel, nil
}

func (s *Selector) aliasTargets(task string) []string {
	if !s.opts.Aliases || s.aliases == nil {
		return nil
	}
	return s.aliases.Resolve(task)
}

func (s *Selector) skip(id string, err error) {
	logging.Warn().Str("id", id).Err(err).Msg("skipping template: metadata load failed")
	if s.onSkip != nil {
		s.onSkip(id, err)
	}
}

// sortCandidates orders by score descending, then id for stable output.
func sortCandidates(c []Candidate) {
	slices.SortStableFunc(c, func(a, b Candidate) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// clarifyingQuestions asks about every dimension the task did not mention.
func clarifyingQuestions(tokens []string) []string {
	has := func(values []string) bool {
		for _, tok := range tokens {
			if slices.Contains(values, tok) {
				return true
			}
		}
		return false
	}

	var qs []string
	if !has(catalog.Libraries) {
		qs = append(qs, "Which framework or library should the spike use (for example elysia, hono, express, bullmq)?")
	}
	if !has(catalog.Languages) {
		qs = append(qs, "Should it be TypeScript or JavaScript?")
	}
	if !has(catalog.Styles) {
		qs = append(qs, "Which style fits best: basic, typed, secure, testing, minimal or observable?")
	}
	if !has(catalog.Patterns) {
		qs = append(qs, "What kind of feature is it: route, plugin, middleware, worker, listener, schema, client, cli, cron, cache, auth or test?")
	}
	if len(qs) == 0 {
		qs = append(qs, "Could you describe the feature in more detail, including what it should do?")
	}
	return qs
}
