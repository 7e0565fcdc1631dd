// Package history records completed build runs in a SQLite database inside
// the work directory. History is informational: recording failures are
// surfaced as warnings by callers, never as build failures.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one completed (or failed) build run.
type Record struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Status      string // "success" or "failed"
	Stages      string // comma-separated stages that actually ran
	AppVersion  string
	BuildNumber string
	GitCommit   string
}

// Store persists build records.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and initializes if needed) the history database.
// Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		stages TEXT NOT NULL,
		app_version TEXT NOT NULL,
		build_number TEXT NOT NULL,
		git_commit TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRunID returns a fresh identifier for a build run.
func NewRunID() string {
	return uuid.NewString()
}

// Insert stores one build record. A missing ID is filled in.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = NewRunID()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, finished_at, duration_ms, status, stages, app_version, build_number, git_commit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.Unix(),
		rec.FinishedAt.Unix(),
		rec.Duration.Milliseconds(),
		rec.Status,
		rec.Stages,
		rec.AppVersion,
		rec.BuildNumber,
		rec.GitCommit,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, duration_ms, status, stages, app_version, build_number, git_commit
		 FROM builds ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query build records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedAt, finishedAt, durationMS int64
		var gitCommit sql.NullString
		if err := rows.Scan(
			&rec.ID, &startedAt, &finishedAt, &durationMS,
			&rec.Status, &rec.Stages, &rec.AppVersion, &rec.BuildNumber, &gitCommit,
		); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.FinishedAt = time.Unix(finishedAt, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.GitCommit = gitCommit.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build records: %w", err)
	}
	return records, nil
}
