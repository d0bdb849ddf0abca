package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the current database layout version.
const SchemaVersion = "1"

const driverName = "sqlite"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite store at path. Use
// ":memory:" for a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS things (
			id TEXT PRIMARY KEY,
			schema_name TEXT NOT NULL,
			name TEXT NOT NULL,
			properties TEXT NOT NULL,
			created TEXT NOT NULL,
			accessed TEXT NOT NULL,
			modified TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS things_schema ON things (schema_name, created);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	s := &SQLite{db: db}

	version, err := s.metadata(ctx, "schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadata(ctx, "schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Get retrieves a thing by ID.
func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (*Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, schema_name, name, properties, created, accessed, modified
		FROM things WHERE id = ?
	`, id.String())
	t, err := scanThing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// Put stores a thing, replacing any previous version.
func (s *SQLite) Put(ctx context.Context, t *Thing) error {
	props, err := encodeProperties(t.Properties)
	if err != nil {
		return fmt.Errorf("encoding thing %s: %w", t.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO things (id, schema_name, name, properties, created, accessed, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_name = excluded.schema_name,
			name = excluded.name,
			properties = excluded.properties,
			created = excluded.created,
			accessed = excluded.accessed,
			modified = excluded.modified
	`, t.ID.String(), t.SchemaName, t.Name, string(props),
		formatTime(t.Created), formatTime(t.Accessed), formatTime(t.Modified))
	if err != nil {
		return fmt.Errorf("storing thing %s: %w", t.ID, err)
	}
	return nil
}

// Delete removes a thing by ID.
func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM things WHERE id = ?", id.String())
	return err
}

// List returns the things of a schema ordered by creation time.
func (s *SQLite) List(ctx context.Context, schemaName string) ([]*Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_name, name, properties, created, accessed, modified
		FROM things WHERE schema_name = ? ORDER BY created, id
	`, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Thing
	for rows.Next() {
		t, err := scanThing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) metadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLite) setMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanThing(sc scanner) (*Thing, error) {
	var (
		id, schemaName, name, props string
		created, accessed, modified string
	)
	if err := sc.Scan(&id, &schemaName, &name, &props, &created, &accessed, &modified); err != nil {
		return nil, err
	}

	t := &Thing{SchemaName: schemaName, Name: name}
	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("thing id %q: %w", id, err)
	}
	if t.Properties, err = decodeProperties([]byte(props)); err != nil {
		return nil, fmt.Errorf("thing %s: %w", id, err)
	}
	if t.Created, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("thing %s: %w", id, err)
	}
	if t.Accessed, err = parseTime(accessed); err != nil {
		return nil, fmt.Errorf("thing %s: %w", id, err)
	}
	if t.Modified, err = parseTime(modified); err != nil {
		return nil, fmt.Errorf("thing %s: %w", id, err)
	}
	return t, nil
}

// timeLayout has a fixed-width fraction so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Zero times are stored as empty text.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
