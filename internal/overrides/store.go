// Package overrides persists hand-authored spike definitions that take
// precedence over synthesized ones.
//
// Two backends exist: a directory of JSON/YAML files checked into a project,
// and a SQLite database for user-wide overrides. Chain layers them.
package overrides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

// ErrNotExist means no override is persisted under an id. Callers fall
// through to synthesis.
var ErrNotExist = errors.New("override does not exist")

// Store reads persisted overrides.
type Store interface {
	Load(ctx context.Context, id string) (*catalog.Definition, error)
	LoadMetadata(ctx context.Context, id string) (catalog.Metadata, error)
	List(ctx context.Context) ([]string, error)
}

// Writer is implemented by stores that accept new overrides.
type Writer interface {
	Put(ctx context.Context, def *catalog.Definition) error
	Delete(ctx context.Context, id string) error
}

// checkID rejects ids that could escape a store directory.
func checkID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.New("override id is empty")
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("override id %q contains a path separator", id)
	}
	return nil
}
