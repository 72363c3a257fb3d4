// Package journal records reconciliation runs in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/roles"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);`

var ErrClosed = errors.New("journal: store is closed")

// Status summarizes how a run ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusDryRun  Status = "dry-run"
)

// Entry is one recorded run.
type Entry struct {
	ID           string          `json:"id" yaml:"id"`
	Command      string          `json:"command" yaml:"command"`
	Args         []string        `json:"args" yaml:"args"`
	Status       Status          `json:"status" yaml:"status"`
	StartedAt    time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time       `json:"finished_at" yaml:"finished_at"`
	RolesBefore  roles.Set       `json:"roles_before" yaml:"roles_before"`
	RolesAfter   roles.Set       `json:"roles_after" yaml:"roles_after"`
	Results      []pkgmgr.Result `json:"results,omitempty" yaml:"results,omitempty"`
	SkippedRoles []string        `json:"skipped_roles,omitempty" yaml:"skipped_roles,omitempty"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store persists run entries.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Begin starts an entry for command with a fresh id.
func (s *Store) Begin(command string, args []string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Command:   command,
		Args:      append([]string(nil), args...),
		StartedAt: s.now().UTC(),
	}
}

// Record finishes and stores e.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if s == nil || s.db == nil {
		return e, ErrClosed
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = s.now().UTC()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = s.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("journal: encode entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (id, command, status, started_at, finished_at, payload)
VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Command,
		string(e.Status),
		e.StartedAt.Format(time.RFC3339Nano),
		e.FinishedAt.Format(time.RFC3339Nano),
		payload,
	)
	if err != nil {
		return e, fmt.Errorf("journal: insert run: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	query := `SELECT payload FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("journal: decode run: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: run rows: %w", err)
	}
	return out, nil
}
