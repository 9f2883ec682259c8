package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// An in-memory database exists per connection; cap the pool so every
	// statement sees the same one.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func generateID() string {
	return uuid.New().String()
}

// CreateRun records the start of a conversion run.
func (s *SQLiteStore) CreateRun(indexPath, output string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		IndexPath: indexPath,
		Output:    output,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("index", indexPath))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, index_path, output, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.IndexPath, run.Output, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status and totals.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, rowCount int, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, row_count = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), rowCount, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, index_path, output, status, started_at, completed_at, error, row_count
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, index_path, output, status, started_at, completed_at, error, row_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		status    string
		completed sql.NullTime
	)
	err := sc.Scan(&run.ID, &run.IndexPath, &run.Output, &status,
		&run.StartedAt, &completed, &run.Error, &run.RowCount)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// SaveEntryResults stores the per-entry outcomes of a run.
func (s *SQLiteStore) SaveEntryResults(runID string, results []EntryResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO entry_results (id, run_id, name, path, row_count, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		if _, err := stmt.Exec(generateID(), runID, r.Name, r.Path, r.RowCount, r.DurationMS, r.Error); err != nil {
			return fmt.Errorf("failed to save entry result %s: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

// GetEntryResults returns a run's per-entry outcomes.
func (s *SQLiteStore) GetEntryResults(runID string) ([]EntryResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, name, path, row_count, duration_ms, error
		 FROM entry_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EntryResult
	for rows.Next() {
		var r EntryResult
		if err := rows.Scan(&r.ID, &r.RunID, &r.Name, &r.Path, &r.RowCount, &r.DurationMS, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan entry result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveWarnings stores a run's data-quality warnings.
func (s *SQLiteStore) SaveWarnings(runID string, messages []string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, msg := range messages {
		if _, err := tx.Exec(
			`INSERT INTO warnings (id, run_id, message) VALUES (?, ?, ?)`,
			generateID(), runID, msg); err != nil {
			return fmt.Errorf("failed to save warning: %w", err)
		}
	}
	return tx.Commit()
}

// GetWarnings returns a run's warnings.
func (s *SQLiteStore) GetWarnings(runID string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT message FROM warnings WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
