// Package history - SQLite record of every summary written during a run.
//
// The summary text files only keep the latest step. The store keeps all of them,
// keyed by a run ID, so a finished run can be inspected or plotted afterwards.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	step INTEGER NOT NULL,
	loss REAL,
	psnr REAL,
	ssim REAL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_run_mode ON summaries(run_id, mode, step);`

// Entry is one summary row.
type Entry struct {
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	Step      int       `json:"step"`
	Loss      float64   `json:"loss"`
	PSNR      float64   `json:"psnr"`
	SSIM      float64   `json:"ssim"`
	CreatedAt time.Time `json:"created_at"`
}

// Store appends summary entries to a SQLite database.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Entries recorded without a RunID get a fresh random run ID for this Store.
//
// Arguments:
//   - path: The database file; ":memory:" for a throwaway store.
//
// Returns:
//   - *Store: The opened store.
//   - error: An error if the database cannot be opened or migrated.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history database %s", path)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create summaries table")
	}
	return &Store{db: db, runID: uuid.NewString()}, nil
}

// RunID returns the run ID assigned to entries recorded without one.
func (s *Store) RunID() string { return s.runID }

// Record inserts an entry. Missing RunID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		e.RunID = s.runID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (run_id, mode, step, loss, psnr, ssim, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Mode, e.Step, e.Loss, e.PSNR, e.SSIM, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "failed to record %s step %d", e.Mode, e.Step)
	}
	return nil
}

// List returns this store's run entries for mode, ordered by step and insertion.
func (s *Store) List(ctx context.Context, mode string) ([]Entry, error) {
	return s.ListRun(ctx, s.runID, mode)
}

// ListRun returns the entries of any run for mode, ordered by step and insertion.
func (s *Store) ListRun(ctx context.Context, runID, mode string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, mode, step, loss, psnr, ssim, created_at FROM summaries
		 WHERE run_id = ? AND mode = ? ORDER BY step, id`, runID, mode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query summaries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.RunID, &e.Mode, &e.Step, &e.Loss, &e.PSNR, &e.SSIM, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan summary row")
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, errors.Wrapf(err, "bad created_at %q", created)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "failed to iterate summaries")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
