package overrides

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

// Extensions recognized by FileStore, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// FileStore keeps one definition per file under a directory. The file name
// without extension is the spike id.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory need not exist
// until the first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory.
func (fs *FileStore) Dir() string { return fs.dir }

// Load reads and validates the definition stored under id. An id that
// cannot name a file in the directory has no override.
func (fs *FileStore) Load(_ context.Context, id string) (*catalog.Definition, error) {
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotExist, err)
	}
	for _, ext := range Extensions {
		path := filepath.Join(fs.dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading override %q: %w", id, err)
		}
		return Decode(id, ext, data)
	}
	return nil, ErrNotExist
}

// LoadMetadata loads the full file and projects it. Override files are small.
func (fs *FileStore) LoadMetadata(ctx context.Context, id string) (catalog.Metadata, error) {
	def, err := fs.Load(ctx, id)
	if err != nil {
		return catalog.Metadata{}, err
	}
	return def.Metadata(), nil
}

// List returns the ids of every definition file, sorted. A missing directory
// lists as empty.
func (fs *FileStore) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading overrides directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := IDFromPath(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Put writes def as indented JSON, replacing any existing file for its id.
func (fs *FileStore) Put(_ context.Context, def *catalog.Definition) error {
	if err := catalog.Validate(def); err != nil {
		return err
	}
	if err := checkID(def.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("creating overrides directory: %w", err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling override %q: %w", def.ID, err)
	}
	if err := fs.removeAll(def.ID); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(fs.dir, def.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("writing override %q: %w", def.ID, err)
	}
	return nil
}

// Delete removes every file stored under id.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	found := false
	for _, ext := range Extensions {
		err := os.Remove(filepath.Join(fs.dir, id+ext))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("removing override %q: %w", id, err)
		}
	}
	if !found {
		return ErrNotExist
	}
	return nil
}

func (fs *FileStore) removeAll(id string) error {
	if err := fs.Delete(context.Background(), id); err != nil && !errors.Is(err, ErrNotExist) {
		return err
	}
	return nil
}

// IDFromPath returns the spike id for a definition file name.
func IDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !slices.Contains(Extensions, ext) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ext), true
}

// Decode parses a definition file body. An empty id in the document is
// filled from the file name; a different one is an error.
func Decode(id, ext string, data []byte) (*catalog.Definition, error) {
	var def catalog.Definition
	var err error
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &def)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &def)
	default:
		return nil, fmt.Errorf("unsupported override format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing override %q: %w", id, err)
	}

	if def.ID == "" {
		def.ID = id
	}
	if def.ID != id {
		return nil, fmt.Errorf("override file %q declares id %q", id, def.ID)
	}
	if err := catalog.Validate(&def); err != nil {
		return nil, fmt.Errorf("override %q: %w", id, err)
	}
	return &def, nil
}
