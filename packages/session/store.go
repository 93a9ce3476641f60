package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Settings keys.
const (
	KeyRoot         = "root_directory"
	KeySelectedFile = "selected_file"
	KeyEnvironment  = "environment"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

const (
	connectTimeout = 5 * time.Second
	queryTimeout   = 30 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	batch       TEXT NOT NULL,
	file        TEXT NOT NULL,
	environment TEXT NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	success     INTEGER NOT NULL,
	status      INTEGER,
	duration_ms INTEGER,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Store is a SQLite backed settings and history store. It is safe for
// concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded request execution.
type Run struct {
	ID          string
	Batch       string
	File        string
	Environment string
	Method      string
	URL         string
	Success     bool
	Status      *int
	DurationMs  *int64
	Error       string
	CreatedAt   time.Time
}

// DefaultPath returns the per-user database location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "hitdesk", "session.db"), nil
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key. ok is false when unset.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key. An empty value removes the key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var err error
	if value == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	}
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// RecordRuns stores runs as one batch and returns the batch id. IDs and
// timestamps are assigned here.
func (s *Store) RecordRuns(ctx context.Context, runs []*Run) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	batch := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO runs (id, batch, file, environment, method, url, success, status, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, r := range runs {
		r.ID = uuid.NewString()
		r.Batch = batch
		r.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, r.ID, r.Batch, r.File, r.Environment, r.Method, r.URL,
			r.Success, r.Status, r.DurationMs, r.Error, now.UnixNano()); err != nil {
			return "", fmt.Errorf("recording run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing runs: %w", err)
	}
	return batch, nil
}

// History returns up to limit runs, newest first. Runs of one batch keep
// their recorded order.
func (s *Store) History(ctx context.Context, limit int) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch, file, environment, method, url, success, status, duration_ms, error, created_at
		 FROM runs ORDER BY created_at DESC, rowid ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r        Run
			status   sql.NullInt64
			duration sql.NullInt64
			created  int64
		)
		if err := rows.Scan(&r.ID, &r.Batch, &r.File, &r.Environment, &r.Method, &r.URL,
			&r.Success, &status, &duration, &r.Error, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if status.Valid {
			v := int(status.Int64)
			r.Status = &v
		}
		if duration.Valid {
			r.DurationMs = &duration.Int64
		}
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}
