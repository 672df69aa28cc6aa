package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mikecalendo/gh-serv/pkg/config"
)

// EventKind classifies audit events.
type EventKind string

const (
	KindRepoCreated      EventKind = "repo_created"
	KindRepoCreateFailed EventKind = "repo_create_failed"
	KindRepoUpdated      EventKind = "repo_updated"
	KindPushReceived     EventKind = "push_received"
	KindSweepRemoved     EventKind = "sweep_removed"
)

// Event is one audit log entry.
type Event struct {
	ID     int64     `json:"id"`
	Time   time.Time `json:"time"`
	RepoID string    `json:"repo_id"`
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail"`
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	time    TEXT NOT NULL,
	repo_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	detail  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_repo ON audit_events(repo_id);
CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_events(time);
`

// Store persists audit events in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the audit database described by cfg.
func Open(cfg config.AuditConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "audit"),
	}
	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit store opened", "path", cfg.Path)
	return s, nil
}

func (s *Store) initialize(cfg config.AuditConfig) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Record appends one event. Recording is best effort from the caller's
// perspective; failures are returned but callers typically just log them.
func (s *Store) Record(ctx context.Context, repoID string, kind EventKind, detail string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_events (time, repo_id, kind, detail) VALUES (?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), repoID, kind, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ForRepository returns up to limit events for one repository, newest
// first.
func (s *Store) ForRepository(ctx context.Context, repoID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, time, repo_id, kind, detail FROM audit_events WHERE repo_id = ? ORDER BY id DESC LIMIT ?",
		repoID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns up to limit events across all repositories, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, time, repo_id, kind, detail FROM audit_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.RepoID, &e.Kind, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err == nil {
			e.Time = parsed
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
