// Package store keeps encoded surfaces in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/isosurf/pkg/monitoring"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("surface not found")

const schema = `
	CREATE TABLE IF NOT EXISTS surfaces (
		surface_id    TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		kind          TEXT NOT NULL,
		label         TEXT,
		triangles     INTEGER NOT NULL DEFAULT 0,
		warnings      INTEGER NOT NULL DEFAULT 0,
		created_at_ns INTEGER NOT NULL,
		blob          BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS surfaces_created ON surfaces (created_at_ns);
`

// Record is one stored surface. Blob holds the JVXL encoding.
type Record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Label       string `json:"label,omitempty"`
	Triangles   int    `json:"triangles"`
	Warnings    int    `json:"warnings"`
	CreatedAtNs int64  `json:"created_at_ns"`
	Blob        []byte `json:"-"`
}

// Store provides persistence for encoded surfaces.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores r. An empty ID is replaced by a new UUID and a zero
// CreatedAtNs by the current time; both are written back to r.
func (s *Store) Insert(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAtNs == 0 {
		r.CreatedAtNs = time.Now().UnixNano()
	}
	if r.Blob == nil {
		r.Blob = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO surfaces (
			surface_id, name, kind, label, triangles, warnings, created_at_ns, blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Name,
		r.Kind,
		nullString(r.Label),
		r.Triangles,
		r.Warnings,
		r.CreatedAtNs,
		r.Blob,
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", r.ID, err)
	}
	monitoring.Logf("store: saved %s %q (%d bytes)", r.ID, r.Name, len(r.Blob))
	return nil
}

// Get retrieves a record, blob included.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var r Record
	var label sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT surface_id, name, kind, label, triangles, warnings, created_at_ns, blob
		FROM surfaces
		WHERE surface_id = ?
	`, id).Scan(&r.ID, &r.Name, &r.Kind, &label, &r.Triangles, &r.Warnings, &r.CreatedAtNs, &r.Blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	r.Label = label.String
	return &r, nil
}

// List returns every record without its blob, oldest first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT surface_id, name, kind, label, triangles, warnings, created_at_ns
		FROM surfaces
		ORDER BY created_at_ns, surface_id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var label sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind, &label, &r.Triangles, &r.Warnings, &r.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		r.Label = label.String
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
