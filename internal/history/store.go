package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"crate/internal/config"
	"crate/internal/export"
	"crate/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// timestampLayout keeps every stored time the same width so text order is
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", services.ErrPersistence, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", services.ErrPersistence, pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
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
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a new history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

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

// RecordRun stores report and its resource outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, report *export.Report, dryRun bool) error {
	if report == nil {
		return errors.New("report is nil")
	}
	run := FromReport(report, dryRun)
	err := retryOnBusy(ctx, func() error {
		return s.insertRun(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("%w: record run %s: %w", services.ErrPersistence, run.ID, err)
	}
	return nil
}

func (s *Store) insertRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, duration_ms, formats, status, dry_run, error_message)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timestampLayout),
		run.FinishedAt.UTC().Format(timestampLayout),
		run.Duration.Milliseconds(),
		strings.Join(run.Formats, ","),
		run.Status,
		boolToInt(run.DryRun),
		nullableString(run.Error),
	)
	if err != nil {
		return err
	}

	for _, res := range run.Resources {
		var counts [6]any
		if res.Lists != nil {
			counts = [6]any{res.Lists.New, res.Lists.Refreshed, res.Lists.Skipped, res.Lists.Failed, res.Lists.Purged, res.Lists.Retained}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO resource_results (
                run_id, resource, status, records, normalized, skipped, files, duration_ms,
                error_kind, error_message,
                lists_new, lists_refreshed, lists_skipped, lists_failed, lists_purged, lists_retained
             ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, res.Resource, res.Status, res.Records, res.Normalized, res.Skipped, res.Files,
			res.Duration.Milliseconds(),
			nullableString(res.ErrorKind), nullableString(res.Error),
			counts[0], counts[1], counts[2], counts[3], counts[4], counts[5],
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Runs returns the most recent runs, newest first, with their resources.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, duration_ms, formats, status, dry_run, error_message
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		resources, err := s.resources(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Resources = resources
	}
	return runs, nil
}

// Last returns the most recent run, or nil when none was recorded.
func (s *Store) Last(ctx context.Context) (*Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Prune deletes all but the newest keep runs.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE run_id NOT IN (
                SELECT run_id FROM runs ORDER BY started_at DESC LIMIT ?
             )`, keep)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return affected, nil
}

func (s *Store) resources(ctx context.Context, runID string) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource, status, records, normalized, skipped, files, duration_ms, error_kind, error_message,
                lists_new, lists_refreshed, lists_skipped, lists_failed, lists_purged, lists_retained
         FROM resource_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []Resource
	for rows.Next() {
		var (
			res        Resource
			durationMS int64
			errorKind  sql.NullString
			errorMsg   sql.NullString
			lists      [6]sql.NullInt64
		)
		if err := rows.Scan(
			&res.Resource, &res.Status, &res.Records, &res.Normalized, &res.Skipped, &res.Files, &durationMS,
			&errorKind, &errorMsg,
			&lists[0], &lists[1], &lists[2], &lists[3], &lists[4], &lists[5],
		); err != nil {
			return nil, err
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		res.ErrorKind = errorKind.String
		res.Error = errorMsg.String
		if lists[0].Valid {
			res.Lists = &ListCounts{
				New:       int(lists[0].Int64),
				Refreshed: int(lists[1].Int64),
				Skipped:   int(lists[2].Int64),
				Failed:    int(lists[3].Int64),
				Purged:    int(lists[4].Int64),
				Retained:  int(lists[5].Int64),
			}
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		started    string
		finished   string
		durationMS int64
		formats    string
		dryRun     int
		errorMsg   sql.NullString
	)
	if err := scanner.Scan(&run.ID, &started, &finished, &durationMS, &formats, &run.Status, &dryRun, &errorMsg); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if formats != "" {
		run.Formats = strings.Split(formats, ",")
	}
	run.DryRun = dryRun != 0
	run.Error = errorMsg.String
	return run, nil
}

// parseTime also accepts rows written with a variable-width fraction.
func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
