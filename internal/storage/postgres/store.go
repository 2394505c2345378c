// Package postgres provides Postgres-backed mention and watermark persistence.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// watermarkName keys the single watermark row per deployment.
const watermarkName = "default"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MentionsTable   string
	WatermarkTable  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements monitor.MentionStore and monitor.WatermarkStore over a
// single connection pool acquired once per process and released on Close.
type Store struct {
	pool           pool
	mentionsTable  string
	watermarkTable string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	mentions, watermark, err := tableNames(cfg.MentionsTable, cfg.WatermarkTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, mentionsTable: mentions, watermarkTable: watermark}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(p pool, mentionsTable, watermarkTable string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	mentions, watermark, err := tableNames(mentionsTable, watermarkTable)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, mentionsTable: mentions, watermarkTable: watermark}, nil
}

func tableNames(mentions, watermark string) (string, string, error) {
	if mentions == "" {
		mentions = "mentions"
	}
	if watermark == "" {
		watermark = "watermark"
	}
	for _, name := range []string{mentions, watermark} {
		if !validTableName.MatchString(name) {
			return "", "", fmt.Errorf("invalid table name %q", name)
		}
	}
	return mentions, watermark, nil
}

// Init creates the mention and watermark tables when they do not exist.
func (s *Store) Init(ctx context.Context) error {
	mentionsDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	fetched_at TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL
)`, s.mentionsTable)
	if _, err := s.pool.Exec(ctx, mentionsDDL); err != nil {
		return fmt.Errorf("create mentions table: %w", err)
	}
	watermarkDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	since TIMESTAMPTZ NOT NULL
)`, s.watermarkTable)
	if _, err := s.pool.Exec(ctx, watermarkDDL); err != nil {
		return fmt.Errorf("create watermark table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// LoadSeenIDs returns at most cap of the most recently fetched mention IDs.
func (s *Store) LoadSeenIDs(ctx context.Context, cap int) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT id FROM %s ORDER BY fetched_at DESC LIMIT $1`, s.mentionsTable)
	rows, err := s.pool.Query(ctx, query, cap)
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

// AppendMentions inserts mentions append-only. An ID collision leaves the
// existing row untouched: persisted mentions are immutable, first writer wins.
func (s *Store) AppendMentions(ctx context.Context, mentions []monitor.Mention) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, fetched_at, published_at, source, title, url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`, s.mentionsTable)

	for _, m := range mentions {
		if m.ID == "" {
			return fmt.Errorf("mention id is required")
		}
		if _, err := s.pool.Exec(ctx, query,
			m.ID, m.FetchedAt, m.PublishedAt, m.Source, m.Title, m.URL); err != nil {
			return fmt.Errorf("insert mention %s: %w", m.ID, err)
		}
	}
	return nil
}

// LoadWatermark reads the run cursor; absence is reported, not an error.
func (s *Store) LoadWatermark(ctx context.Context) (time.Time, bool, error) {
	query := fmt.Sprintf(`SELECT since FROM %s WHERE name = $1`, s.watermarkTable)
	var since time.Time
	err := s.pool.QueryRow(ctx, query, watermarkName).Scan(&since)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("select watermark: %w", err)
	}
	return since.UTC(), true, nil
}

// StoreWatermark upserts the run cursor.
func (s *Store) StoreWatermark(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
INSERT INTO %s (name, since)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET since = EXCLUDED.since`, s.watermarkTable)
	if _, err := s.pool.Exec(ctx, query, watermarkName, since); err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
