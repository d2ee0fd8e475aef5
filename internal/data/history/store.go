package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the run history at path. A zero busyTimeout uses
// the default.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun inserts run and its per-code counts in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if strings.TrimSpace(run.Crate) == "" {
		return fmt.Errorf("run %s has no crate name", run.ID)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO runs (
  run_id, crate, edition, started_at_utc, duration_ms, passes, directives, expansions,
  modules, bindings, indeterminate, error_count, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Crate,
			run.Edition,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.Passes,
			run.Directives,
			run.Expansions,
			run.Modules,
			run.Bindings,
			run.Indeterminate,
			run.Errors,
			run.Warnings,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for code, n := range run.Codes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_codes (run_id, code, count) VALUES (?, ?, ?)`, run.ID, code, n); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListRuns returns the newest runs first. An empty crate lists every crate;
// a non-positive limit returns all rows.
func (s *Store) ListRuns(ctx context.Context, crate string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := `
SELECT run_id, crate, edition, started_at_utc, duration_ms, passes, directives, expansions,
  modules, bindings, indeterminate, error_count, warning_count
FROM runs`
	args := make([]any, 0, 2)
	if crate = strings.TrimSpace(crate); crate != "" {
		q += " WHERE crate = ?"
		args = append(args, crate)
	}
	q += " ORDER BY started_at_utc DESC, run_id ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, q, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			startedRaw string
			durationMS int64
			run        Run
		)
		if err := rows.Scan(
			&run.ID,
			&run.Crate,
			&run.Edition,
			&startedRaw,
			&durationMS,
			&run.Passes,
			&run.Directives,
			&run.Expansions,
			&run.Modules,
			&run.Bindings,
			&run.Indeterminate,
			&run.Errors,
			&run.Warnings,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.StartedAt = ts.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		codes, err := s.loadCodes(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Codes = codes
	}
	return runs, nil
}

func (s *Store) loadCodes(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, count FROM run_codes WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load codes for run %s: %w", runID, err)
	}
	defer rows.Close()
	codes := make(map[string]int)
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan code row: %w", err)
		}
		codes[code] = n
	}
	return codes, rows.Err()
}

// Prune deletes runs that started before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at_utc < ?`,
			cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
