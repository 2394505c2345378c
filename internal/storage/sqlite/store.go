// Package sqlite provides an embedded single-file persistence backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

const watermarkName = "default"

const schema = `
CREATE TABLE IF NOT EXISTS mentions (
	id TEXT PRIMARY KEY,
	fetched_at TEXT NOT NULL,
	published_at TEXT NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS watermark (
	name TEXT PRIMARY KEY,
	since TEXT NOT NULL
);
`

// Store implements monitor.MentionStore and monitor.WatermarkStore over an
// embedded SQLite database. Timestamps are stored as RFC 3339 UTC text.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage.sqlite.path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver serializes access per connection; a single connection keeps
	// writer semantics simple for a strictly sequential run.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// LoadSeenIDs returns at most cap of the most recently fetched mention IDs.
func (s *Store) LoadSeenIDs(ctx context.Context, cap int) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM mentions ORDER BY fetched_at DESC LIMIT ?`, cap)
	if err != nil {
		return nil, fmt.Errorf("select seen ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen id: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen ids: %w", err)
	}
	return seen, nil
}

// AppendMentions inserts mentions append-only; INSERT OR IGNORE keeps the
// first writer's row on an ID collision.
func (s *Store) AppendMentions(ctx context.Context, mentions []monitor.Mention) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, m := range mentions {
		if m.ID == "" {
			return fmt.Errorf("mention id is required")
		}
		_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO mentions (id, fetched_at, published_at, source, title, url)
VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID,
			m.FetchedAt.UTC().Format(time.RFC3339Nano),
			m.PublishedAt.UTC().Format(time.RFC3339Nano),
			m.Source,
			m.Title,
			m.URL)
		if err != nil {
			return fmt.Errorf("insert mention %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// LoadWatermark reads the run cursor; absence is reported, not an error.
func (s *Store) LoadWatermark(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT since FROM watermark WHERE name = ?`, watermarkName).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("select watermark: %w", err)
	}
	since, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse watermark %q: %w", raw, err)
	}
	return since.UTC(), true, nil
}

// StoreWatermark upserts the run cursor.
func (s *Store) StoreWatermark(ctx context.Context, since time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO watermark (name, since) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET since = excluded.since`,
		watermarkName, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
