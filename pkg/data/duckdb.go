package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           VARCHAR PRIMARY KEY,
	project_id   VARCHAR NOT NULL,
	output       VARCHAR NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP,
	total        INTEGER DEFAULT 0,
	completed    INTEGER DEFAULT 0,
	skipped      INTEGER DEFAULT 0,
	failed       INTEGER DEFAULT 0,
	not_started  INTEGER DEFAULT 0,
	rate_limited BOOLEAN DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS files (
	run_id     VARCHAR NOT NULL,
	rel_path   VARCHAR NOT NULL,
	remote_url VARCHAR NOT NULL,
	status     VARCHAR NOT NULL,
	reason     VARCHAR,
	attempts   INTEGER DEFAULT 0,
	bytes      BIGINT DEFAULT 0,
	error      VARCHAR
);`

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// InitDuckDB opens the ledger database at path, creating the parent
// directory and the schema when missing.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return db, nil
}

// DefaultLedgerPath is ~/.anonclone/history.db.
func DefaultLedgerPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".anonclone", "history.db")
	}
	return filepath.Join(homeDir, ".anonclone", "history.db")
}

// Repository is the DuckDB-backed history of clone runs.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenRepository initializes the database at path and wraps it.
func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) StartRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	_, err := r.db.Exec(
		`INSERT INTO runs (id, project_id, output, started_at, total) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ProjectID, run.Output, run.StartedAt.UTC(), run.Total,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (r *Repository) RecordOutcome(runID string, outcome DownloadOutcome) error {
	var errText string
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	_, err := r.db.Exec(
		`INSERT INTO files (run_id, rel_path, remote_url, status, reason, attempts, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		outcome.Task.RelPath,
		outcome.Task.RemoteURL,
		outcome.Status.String(),
		string(outcome.Reason),
		outcome.Attempts,
		outcome.Bytes,
		errText,
	)
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", outcome.Task.RelPath, err)
	}
	return nil
}

func (r *Repository) FinishRun(runID string, summary Summary, finishedAt time.Time) error {
	res, err := r.db.Exec(
		`UPDATE runs SET finished_at = ?, total = ?, completed = ?, skipped = ?, failed = ?,
		 not_started = ?, rate_limited = ? WHERE id = ?`,
		finishedAt.UTC(),
		summary.Total,
		summary.Completed,
		summary.Skipped,
		summary.Failed,
		summary.NotStarted,
		summary.RateLimited,
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func (r *Repository) GetRun(runID string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, project_id, output, started_at, finished_at, total, completed, skipped,
		 failed, not_started, rate_limited FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// FindRun resolves a full run id or a unique prefix of one.
func (r *Repository) FindRun(ref string) (*Run, error) {
	if ref == "" {
		return nil, ErrRunNotFound
	}
	if run, err := r.GetRun(ref); !errors.Is(err, ErrRunNotFound) {
		return run, err
	}

	rows, err := r.db.Query(`SELECT id FROM runs WHERE starts_with(id, ?) LIMIT 2`, ref)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return nil, ErrRunNotFound
	case 1:
		return r.GetRun(ids[0])
	default:
		return nil, fmt.Errorf("run reference %q is ambiguous", ref)
	}
}

// ListRuns returns every run, newest first.
func (r *Repository) ListRuns() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, project_id, output, started_at, finished_at, total, completed, skipped,
		 failed, not_started, rate_limited FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
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

func (r *Repository) GetFiles(runID string) ([]*FileRecord, error) {
	rows, err := r.db.Query(
		`SELECT run_id, rel_path, remote_url, status, reason, attempts, bytes, error
		 FROM files WHERE run_id = ? ORDER BY rel_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		var (
			f      FileRecord
			reason sql.NullString
			errStr sql.NullString
		)
		if err := rows.Scan(&f.RunID, &f.RelPath, &f.RemoteURL, &f.Status, &reason, &f.Attempts, &f.Bytes, &errStr); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Reason = reason.String
		f.Error = errStr.String
		files = append(files, &f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := s.Scan(&run.ID, &run.ProjectID, &run.Output, &run.StartedAt, &finished, &run.Total,
		&run.Completed, &run.Skipped, &run.Failed, &run.NotStarted, &run.RateLimited)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
