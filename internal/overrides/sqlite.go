package overrides

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaceable in tests.
var timeNow = time.Now

// Record is an override row with bookkeeping columns.
type Record struct {
	Metadata  catalog.Metadata `json:"metadata"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// SQLiteStore keeps overrides in a single SQLite table. List-style columns are
// stored as JSON arrays so metadata can be projected without decoding file
// bodies.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("overrides: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("overrides: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("overrides: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("overrides: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS overrides (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			version     TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			stack       TEXT NOT NULL DEFAULT '[]',
			tags        TEXT NOT NULL DEFAULT '[]',
			params      TEXT NOT NULL DEFAULT '[]',
			files       TEXT NOT NULL DEFAULT '[]',
			patches     TEXT NOT NULL DEFAULT '[]',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_overrides_updated ON overrides(updated_at DESC);
	`)
	return err
}

// Put inserts or replaces def. created_at survives replacement.
func (s *SQLiteStore) Put(ctx context.Context, def *catalog.Definition) error {
	if err := catalog.Validate(def); err != nil {
		return err
	}

	cols, err := encodeColumns(def)
	if err != nil {
		return fmt.Errorf("encoding override %q: %w", def.ID, err)
	}
	now := timeNow().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO overrides (id, name, version, description, stack, tags, params, files, patches, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			description = excluded.description,
			stack = excluded.stack,
			tags = excluded.tags,
			params = excluded.params,
			files = excluded.files,
			patches = excluded.patches,
			updated_at = excluded.updated_at`,
		def.ID, def.Name, def.Version, def.Description,
		cols[0], cols[1], cols[2], cols[3], cols[4], now, now)
	if err != nil {
		return fmt.Errorf("saving override %q: %w", def.ID, err)
	}
	return nil
}

// Load returns the full definition stored under id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*catalog.Definition, error) {
	var (
		def                                 catalog.Definition
		stack, tags, params, files, patches string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, version, description, stack, tags, params, files, patches
		FROM overrides WHERE id = ?`, id).
		Scan(&def.ID, &def.Name, &def.Version, &def.Description, &stack, &tags, &params, &files, &patches)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("loading override %q: %w", id, err)
	}

	for _, c := range []struct {
		raw string
		dst any
	}{
		{stack, &def.Stack},
		{tags, &def.Tags},
		{params, &def.Params},
		{files, &def.Files},
		{patches, &def.Patches},
	} {
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return nil, fmt.Errorf("decoding override %q: %w", id, err)
		}
	}
	return &def, nil
}

// LoadMetadata projects the row without reading file bodies.
func (s *SQLiteStore) LoadMetadata(ctx context.Context, id string) (catalog.Metadata, error) {
	rec, err := s.scanRecord(s.db.QueryRowContext(ctx, recordQuery+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Metadata{}, ErrNotExist
	}
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("loading override metadata %q: %w", id, err)
	}
	return rec.Metadata, nil
}

// List returns every stored id, sorted.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM overrides ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Records returns metadata plus timestamps for every override, most recently
// updated first.
func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, recordQuery+` ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the override stored under id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting override %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotExist
	}
	return nil
}

const recordQuery = `
	SELECT id, name, version, description, stack, tags,
	       json_array_length(files), json_array_length(patches),
	       created_at, updated_at
	FROM overrides`

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row scanner) (Record, error) {
	var (
		rec         Record
		stack, tags string
	)
	m := &rec.Metadata
	if err := row.Scan(&m.ID, &m.Name, &m.Version, &m.Description, &stack, &tags,
		&m.FileCount, &m.PatchCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(stack), &m.Stack); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func encodeColumns(def *catalog.Definition) ([5]string, error) {
	var out [5]string
	for i, v := range []any{nonNil(def.Stack), nonNil(def.Tags), nonNil(def.Params), nonNil(def.Files), nonNil(def.Patches)} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}

// nonNil keeps empty lists encoded as [] so json_array_length returns 0.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
