package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// timestampLayout is fixed width so stored timestamps sort correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts when watch mode and the API
	// both record runs.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
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

// SaveRun inserts run, filling in a fresh ID and timestamp when they are
// unset.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusOK
	}
	vars := run.Variables
	if vars == nil {
		vars = map[string]float64{}
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}

	query := `
INSERT INTO runs (
  id, ts_utc, source, script, status, statements, error_code, error_message, variables_json, duration_us
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err = s.withRetry("save run", func() error {
		_, err := s.db.ExecContext(ctx, query,
			run.ID,
			run.Timestamp.UTC().Format(timestampLayout),
			run.Source,
			run.Script,
			run.Status,
			run.Statements,
			run.ErrorCode,
			run.ErrorMessage,
			string(varsJSON),
			run.Duration.Microseconds(),
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// LoadRuns returns runs newest first. A zero since means no lower bound and
// limit <= 0 means no limit.
func (s *Store) LoadRuns(ctx context.Context, since time.Time, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := `
SELECT id, ts_utc, source, script, status, statements, error_code, error_message, variables_json, duration_us
FROM runs
`
	args := make([]any, 0, 2)
	if !since.IsZero() {
		base += " WHERE ts_utc >= ?"
		args = append(args, since.UTC().Format(timestampLayout))
	}
	base += " ORDER BY ts_utc DESC, id ASC"
	if limit > 0 {
		base += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, base, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			tsRaw   string
			varsRaw string
			micros  int64
			run     Run
		)
		if err := rows.Scan(
			&run.ID,
			&tsRaw,
			&run.Source,
			&run.Script,
			&run.Status,
			&run.Statements,
			&run.ErrorCode,
			&run.ErrorMessage,
			&varsRaw,
			&micros,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(timestampLayout, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		run.Duration = time.Duration(micros) * time.Microsecond
		if err := json.Unmarshal([]byte(varsRaw), &run.Variables); err != nil {
			return nil, fmt.Errorf("decode variables for run %s: %w", run.ID, err)
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// Prune keeps the newest retain runs and deletes the rest.
func (s *Store) Prune(ctx context.Context, retain int) (int64, error) {
	if retain <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs WHERE id NOT IN (
  SELECT id FROM runs ORDER BY ts_utc DESC, id ASC LIMIT ?
)`, retain)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not open")
	}
	return s.db.PingContext(ctx)
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
