// Package store persists the projects registry and a rebuilt summary cache
// in SQLite. The cache is plumbing for the dashboard; usage history itself
// always comes from the logs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cclens/cclens/internal/aggregate"
)

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		first_seen TIMESTAMP NOT NULL,
		last_seen TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage_summary (
		period_type TEXT NOT NULL,
		period TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens INTEGER NOT NULL DEFAULT 0,
		cost TEXT NOT NULL DEFAULT '0',
		events INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (period_type, period)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Project is one registered log project.
type Project struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// UpsertProject registers a project path, updating last_seen when it already
// exists.
func (s *Store) UpsertProject(path string, seen time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO projects (id, path, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET last_seen = excluded.last_seen`,
		uuid.NewString(), path, seen, seen)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", path, err)
	}
	return nil
}

// ListProjects returns registered projects, most recently active first.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`
		SELECT id, path, first_seen, last_seen
		FROM projects ORDER BY last_seen DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Path, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceSummaries swaps the cached buckets for one period type ("daily" or
// "monthly") in a single transaction.
func (s *Store) ReplaceSummaries(periodType string, buckets []aggregate.PeriodUsage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replacing %s summaries: %w", periodType, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM usage_summary WHERE period_type = ?`, periodType); err != nil {
		return fmt.Errorf("replacing %s summaries: %w", periodType, err)
	}
	now := time.Now().UTC()
	for _, b := range buckets {
		_, err := tx.Exec(`
			INSERT INTO usage_summary
			(period_type, period, input_tokens, output_tokens,
			 cache_creation_tokens, cache_read_tokens, cost, events, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			periodType, b.Period,
			b.Tokens.InputTokens, b.Tokens.OutputTokens,
			b.Tokens.CacheCreationTokens, b.Tokens.CacheReadTokens,
			b.Cost.String(), b.Events, now)
		if err != nil {
			return fmt.Errorf("replacing %s summaries: %w", periodType, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replacing %s summaries: %w", periodType, err)
	}
	return nil
}

// CachedSummary is one persisted bucket.
type CachedSummary struct {
	Period              string    `json:"period"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	Cost                string    `json:"cost"`
	Events              int       `json:"events"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Summaries returns cached buckets for a period type, newest first.
func (s *Store) Summaries(periodType string) ([]CachedSummary, error) {
	rows, err := s.db.Query(`
		SELECT period, input_tokens, output_tokens, cache_creation_tokens,
		       cache_read_tokens, cost, events, updated_at
		FROM usage_summary WHERE period_type = ? ORDER BY period DESC`, periodType)
	if err != nil {
		return nil, fmt.Errorf("reading %s summaries: %w", periodType, err)
	}
	defer rows.Close()

	var out []CachedSummary
	for rows.Next() {
		var c CachedSummary
		if err := rows.Scan(&c.Period, &c.InputTokens, &c.OutputTokens,
			&c.CacheCreationTokens, &c.CacheReadTokens, &c.Cost, &c.Events, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
