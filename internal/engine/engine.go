// Package engine resolves spike identifiers and implements the catalog
// operations: discover, preview, apply, explain and auto-select.
//
// Resolution order is cache, then persisted override, then synthesis. A
// small number of hand-authored overrides can therefore replace any
// combinatorial default without the matcher knowing the difference.
package engine

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/HendryAvila/spikeforge/internal/cache"
	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/match"
	"github.com/HendryAvila/spikeforge/internal/overrides"
)

// Config holds the engine's tunables.
type Config struct {
	// CatalogLimit caps enumeration of the synthesized space. 0 means no cap.
	CatalogLimit  int
	CacheCapacity int
	CacheTTL      time.Duration
	Match         match.Options
}

// DefaultConfig returns the zero-configuration settings.
func DefaultConfig() Config {
	return Config{
		CatalogLimit:  10000,
		CacheCapacity: cache.DefaultCapacity,
		CacheTTL:      cache.DefaultTTL,
		Match:         match.DefaultOptions(),
	}
}

// Recorder observes engine activity. The metrics package implements it.
type Recorder interface {
	Resolved(source catalog.Source)
	Failed(kind catalog.ErrorKind)
	Selected(found bool, confidence float64)
	Skipped()
}

type nopRecorder struct{}

func (nopRecorder) Resolved(catalog.Source)  {}
func (nopRecorder) Failed(catalog.ErrorKind) {}
func (nopRecorder) Selected(bool, float64)   {}
func (nopRecorder) Skipped()                 {}

// Engine is safe for concurrent use.
type Engine struct {
	cfg      Config
	cache    *cache.Cache
	store    overrides.Store
	selector *match.Selector
	rec      Recorder
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStore sets the override store. Without one only synthesis is used.
func WithStore(s overrides.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithCache replaces the engine's cache, e.g. one with a fake clock.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// New builds an engine. Each engine owns its cache.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, store: overrides.Chain{}, rec: nopRecorder{}}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = cache.New(cfg.CacheCapacity, cfg.CacheTTL)
	}
	e.selector = match.NewSelector(e, cfg.Match, match.WithSkipHook(func(string, error) {
		e.rec.Skipped()
	}))
	return e
}

// Cache exposes the engine's cache for stats and invalidation.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Invalidate drops a cached definition, typically after its override file
// changed.
func (e *Engine) Invalidate(id string) {
	e.cache.Delete(id)
	logging.Debug().Str("id", id).Msg("cache entry invalidated")
}

// InvalidateAll drops every cached definition.
func (e *Engine) InvalidateAll() {
	e.cache.Purge()
	logging.Debug().Msg("cache purged")
}

// Resolved is a definition together with where it came from. Definition is
// a private copy the caller may modify.
type Resolved struct {
	Definition *catalog.Definition
	Source     catalog.Source
}

// Resolve looks id up in the cache, then the override store, then the
// synthesized space.
func (e *Engine) Resolve(ctx context.Context, id string) (*Resolved, error) {
	r, err := e.resolve(ctx, id)
	if err != nil {
		e.rec.Failed(catalog.KindOf(err))
		return nil, err
	}
	e.rec.Resolved(r.Source)
	return r, nil
}

func (e *Engine) resolve(ctx context.Context, id string) (*Resolved, error) {
	if def, ok := e.cache.Get(id); ok {
		return &Resolved{Definition: def.Clone(), Source: catalog.SourceCache}, nil
	}

	def, err := e.store.Load(ctx, id)
	switch {
	case err == nil:
		e.cache.Put(id, def)
		return &Resolved{Definition: def.Clone(), Source: catalog.SourceOverride}, nil
	case !errors.Is(err, overrides.ErrNotExist):
		return nil, &catalog.Error{Kind: catalog.KindMetadataLoadFailure, ID: id, Err: err}
	}

	if !catalog.BelongsTo(id) {
		return nil, catalog.Errorf(catalog.KindNotFound, id, "no override and not a synthesizable identifier")
	}
	def, err = catalog.Synthesize(id)
	if err != nil {
		return nil, err
	}
	e.cache.Put(id, def)
	return &Resolved{Definition: def.Clone(), Source: catalog.SourceSynthesized}, nil
}

// Definition implements match.Catalog.
func (e *Engine) Definition(ctx context.Context, id string) (*catalog.Definition, error) {
	r, err := e.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Definition, nil
}

// Metadata returns the ranking projection for id without building file
// contents when it can avoid it.
func (e *Engine) Metadata(ctx context.Context, id string) (catalog.Metadata, error) {
	if def, ok := e.cache.Peek(id); ok {
		return def.Metadata(), nil
	}

	m, err := e.store.LoadMetadata(ctx, id)
	switch {
	case err == nil:
		return m, nil
	case !errors.Is(err, overrides.ErrNotExist):
		return catalog.Metadata{}, &catalog.Error{Kind: catalog.KindMetadataLoadFailure, ID: id, Err: err}
	}

	if !catalog.BelongsTo(id) {
		return catalog.Metadata{}, catalog.Errorf(catalog.KindNotFound, id, "no override and not a synthesizable identifier")
	}
	return catalog.SynthesizeMetadata(id)
}

// IDs lists persisted overrides first, then the synthesized space up to the
// configured cap. Overrides shadowing a synthesized id appear once.
func (e *Engine) IDs(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		persisted := e.overrideIDs(ctx)
		seen := make(map[string]bool, len(persisted))
		for _, id := range persisted {
			seen[id] = true
			if !yield(id) {
				return
			}
		}
		for id := range catalog.Enumerate(e.cfg.CatalogLimit) {
			if seen[id] {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// overrideIDs lists persisted ids. Listing failures are logged; synthesis
// still works without overrides.
func (e *Engine) overrideIDs(ctx context.Context) []string {
	ids, err := e.store.List(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("listing overrides failed")
		return nil
	}
	return ids
}

// CatalogStats summarizes the catalog and cache.
type CatalogStats struct {
	SpaceSize        int         `json:"space_size"`
	EnumerationLimit int         `json:"enumeration_limit"`
	Overrides        int         `json:"overrides"`
	Cache            cache.Stats `json:"cache"`
}

// Stats reports catalog size and cache activity.
func (e *Engine) Stats(ctx context.Context) CatalogStats {
	return CatalogStats{
		SpaceSize:        catalog.SpaceSize(),
		EnumerationLimit: e.cfg.CatalogLimit,
		Overrides:        len(e.overrideIDs(ctx)),
		Cache:            e.cache.Stats(),
	}
}
