// Package cache persists validated taxonomy trees in SQLite, keyed by origin
// system and origin identifier.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/taxonomy"
)

// ErrNotFound is returned by Load when no tree is cached under the key.
var ErrNotFound = errors.New("cache: schema not found")

// DefaultFile is the database file name inside the cache directory.
const DefaultFile = "schemas.db"

// Store is a SQLite-backed schema cache. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// EnableWAL enables write-ahead logging.
	EnableWAL bool
	// InMemory opens a private in-memory database; dir is ignored.
	InMemory bool
}

// DefaultOptions returns file-backed options with WAL enabled.
func DefaultOptions() Options {
	return Options{EnableWAL: true}
}

// Entry summarizes one cached tree for listing.
type Entry struct {
	Key         Key       `json:"key"`
	LevelFields []string  `json:"level_fields"`
	Levels      int       `json:"levels"`
	Records     int       `json:"records"`
	Marker      string    `json:"version_marker"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Open opens or creates the cache database in dir.
func Open(dir string, opts Options) (*Store, error) {
	var dsn, dbPath string
	if opts.InMemory {
		dsn, dbPath = ":memory:", ":memory:"
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("cache: create directory: %w", err)
		}
		dbPath = filepath.Join(dir, DefaultFile)
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, dbPath: dbPath}
	if opts.EnableWAL && !opts.InMemory {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: set busy timeout: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS schemas (
		origin_system  TEXT NOT NULL,
		origin_key     TEXT NOT NULL,
		levels         INTEGER NOT NULL,
		version_marker TEXT NOT NULL,
		level_fields   TEXT NOT NULL DEFAULT '[]',
		records_json   TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (origin_system, origin_key)
	);`
	if _, err := s.db.ExecContext(context.Background(), schema); err != nil {
		return err
	}
	return s.addLevelFields()
}

// addLevelFields upgrades databases created before rows recorded the level
// fields. Their rows read as built from no fields and are refreshed on use.
func (s *Store) addLevelFields() error {
	rows, err := s.db.QueryContext(context.Background(), `SELECT name FROM pragma_table_info('schemas')`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == "level_fields" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = s.db.ExecContext(context.Background(), `ALTER TABLE schemas ADD COLUMN level_fields TEXT NOT NULL DEFAULT '[]'`)
	return err
}

// Save stores tree under key, replacing any existing entry atomically.
func (s *Store) Save(ctx context.Context, key Key, tree *taxonomy.Tree) error {
	data, err := json.Marshal(tree.Records())
	if err != nil {
		return fmt.Errorf("cache: marshal records: %w", err)
	}
	fields, err := json.Marshal(tree.LevelFields())
	if err != nil {
		return fmt.Errorf("cache: marshal level fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemas (origin_system, origin_key, levels, version_marker, level_fields, records_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin_system, origin_key) DO UPDATE SET
			levels = excluded.levels,
			version_marker = excluded.version_marker,
			level_fields = excluded.level_fields,
			records_json = excluded.records_json,
			updated_at = excluded.updated_at`,
		key.System, key.Origin, tree.Levels(), tree.VersionMarker(), string(fields), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache: save %s: %w", key, err)
	}
	return nil
}

// Load returns the tree cached under key, bound to the level fields it was
// saved with. Stored records are validated again, so a corrupted row
// surfaces as a taxonomy integrity error.
func (s *Store) Load(ctx context.Context, key Key) (*taxonomy.Tree, error) {
	var marker, fieldsJSON, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT version_marker, level_fields, records_json FROM schemas WHERE origin_system = ? AND origin_key = ?`,
		key.System, key.Origin).Scan(&marker, &fieldsJSON, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: load %s: %w", key, err)
	}

	var records []model.TaxonomyRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	var fields []string
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("cache: decode level fields of %s: %w", key, err)
	}
	tree, err := taxonomy.New(records, marker)
	if err != nil {
		return nil, fmt.Errorf("cache: %s: %w", key, err)
	}
	if len(fields) == 0 {
		return tree, nil
	}
	return tree.WithLevelFields(fields), nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM schemas WHERE origin_system = ? AND origin_key = ?`, key.System, key.Origin)
	if err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	return nil
}

// List returns every cached entry ordered by system and origin.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT origin_system, origin_key, levels, version_marker, level_fields, records_json, updated_at
		FROM schemas ORDER BY origin_system, origin_key`)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fields, data, updated string
		if err := rows.Scan(&e.Key.System, &e.Key.Origin, &e.Levels, &e.Marker, &fields, &data, &updated); err != nil {
			return nil, fmt.Errorf("cache: list: %w", err)
		}
		_ = json.Unmarshal([]byte(fields), &e.LevelFields)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		var recs []json.RawMessage
		if err := json.Unmarshal([]byte(data), &recs); err == nil {
			e.Records = len(recs)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
