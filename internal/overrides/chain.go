package overrides

import (
	"context"
	"errors"
	"slices"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

// Chain consults stores in order. The first store holding an id wins, so a
// project directory placed first shadows user-wide overrides.
type Chain []Store

// Load returns the definition from the first store that has it.
func (c Chain) Load(ctx context.Context, id string) (*catalog.Definition, error) {
	for _, s := range c {
		def, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		return def, err
	}
	return nil, ErrNotExist
}

// LoadMetadata returns metadata from the first store that has id.
func (c Chain) LoadMetadata(ctx context.Context, id string) (catalog.Metadata, error) {
	for _, s := range c {
		m, err := s.LoadMetadata(ctx, id)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		return m, err
	}
	return catalog.Metadata{}, ErrNotExist
}

// List returns the sorted union of every store's ids.
func (c Chain) List(ctx context.Context) ([]string, error) {
	var all []string
	for _, s := range c {
		ids, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
	slices.Sort(all)
	return slices.Compact(all), nil
}
