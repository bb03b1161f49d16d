package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"photomesh/internal/config"
	"photomesh/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases must be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates no run with the given id exists.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one pipeline execution as recorded in the ledger.
type Run struct {
	ID           string
	SourceBucket string
	SourceKey    string
	DestBucket   string
	Status       string
	CurrentStage string
	ResultKey    string
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StageRecord is one stage execution within a run.
type StageRecord struct {
	Stage        string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	ErrorMessage string
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the run ledger database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "runs.db"))
}

// OpenPath opens the ledger at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Begin records a new running pipeline execution and returns its id.
func (s *Store) Begin(ctx context.Context, job config.Job) (string, error) {
	id := uuid.NewString()
	now := timestamp()
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (
            id, source_bucket, source_key, dest_bucket, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, job.SourceBucket, job.SourceKey, job.DestBucket, StatusRunning, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// StageStarted records a stage beginning and marks it as the run's current
// stage.
func (s *Store) StageStarted(ctx context.Context, runID, stage string) error {
	now := timestamp()
	if err := s.execWithRetry(ctx,
		`INSERT INTO run_stages (run_id, stage, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, stage, StatusRunning, now,
	); err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}
	if err := s.execWithRetry(ctx,
		`UPDATE runs SET current_stage = ?, updated_at = ? WHERE id = ?`,
		stage, now, runID,
	); err != nil {
		return fmt.Errorf("update current stage: %w", err)
	}
	return nil
}

// StageFinished closes out the most recent record for the stage.
func (s *Store) StageFinished(ctx context.Context, runID, stage string, stageErr error) error {
	status := StatusSucceeded
	var message any
	if stageErr != nil {
		status = StatusFailed
		message = stageErr.Error()
	}
	err := s.execWithRetry(ctx,
		`UPDATE run_stages SET status = ?, finished_at = ?, error_message = ?
         WHERE id = (
            SELECT id FROM run_stages
            WHERE run_id = ? AND stage = ? AND finished_at IS NULL
            ORDER BY id DESC LIMIT 1
         )`,
		status, timestamp(), message, runID, stage,
	)
	if err != nil {
		return fmt.Errorf("finish stage: %w", err)
	}
	return nil
}

// Complete marks the run as succeeded with the published object key.
func (s *Store) Complete(ctx context.Context, runID, resultKey string) error {
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, result_key = ?, updated_at = ? WHERE id = ?`,
		StatusSucceeded, resultKey, timestamp(), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// Fail marks the run as failed, labeled with the error taxonomy kind.
func (s *Store) Fail(ctx context.Context, runID string, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, services.Kind(runErr), message, timestamp(), runID,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// Get fetches one run by id.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_bucket, source_key, dest_bucket, status,
                COALESCE(current_stage, ''), COALESCE(result_key, ''),
                COALESCE(error_kind, ''), COALESCE(error_message, ''),
                created_at, updated_at
         FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_bucket, source_key, dest_bucket, status,
                COALESCE(current_stage, ''), COALESCE(result_key, ''),
                COALESCE(error_kind, ''), COALESCE(error_message, ''),
                created_at, updated_at
         FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stages returns the stage history for a run in execution order.
func (s *Store) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, started_at, COALESCE(finished_at, ''), COALESCE(error_message, '')
         FROM run_stages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var rec StageRecord
		var started, finished string
		if err := rows.Scan(&rec.Stage, &rec.Status, &started, &finished, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.StartedAt = parseTimestamp(started)
		rec.FinishedAt = parseTimestamp(finished)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var created, updated string
	err := row.Scan(
		&run.ID, &run.SourceBucket, &run.SourceKey, &run.DestBucket, &run.Status,
		&run.CurrentStage, &run.ResultKey, &run.ErrorKind, &run.ErrorMessage,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = parseTimestamp(created)
	run.UpdatedAt = parseTimestamp(updated)
	return &run, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
