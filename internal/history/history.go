// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of batch runs and the outcome of
// every record, so failed lookups can be listed and re-run by hand. The
// ledger is write-only from the batch's point of view: it is never used
// to skip or reuse lookups.
package history

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibfetch/internal/batch"
	"github.com/pdiddy/bibfetch/internal/input"
)

// ErrNoRuns is returned when the ledger holds no runs yet.
var ErrNoRuns = errors.New("no runs recorded")

const timeFormat = time.RFC3339Nano

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Run summarizes one batch invocation.
type Run struct {
	ID         int64
	Input      string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running or after a crash
	Downloaded int
	Failed     int
}

// Entry is the stored outcome of one record.
type Entry struct {
	RunID   int64
	Index   int
	Author  string
	Title   string
	DOI     string
	Outcome string
	Path    string
	Error   string
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			downloaded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			author TEXT NOT NULL,
			title TEXT NOT NULL,
			doi TEXT,
			outcome TEXT NOT NULL,
			path TEXT,
			error TEXT,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_outcome ON outcomes(run_id, outcome)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunRecorder writes the outcomes of one run. It implements batch.Recorder.
type RunRecorder struct {
	store *Store
	ID    int64
}

// BeginRun inserts a run row and returns a recorder for its outcomes.
func (s *Store) BeginRun(ctx context.Context, inputDesc, outputDir string) (*RunRecorder, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (input, output_dir, started_at) VALUES (?, ?, ?)`,
		inputDesc, outputDir, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return &RunRecorder{store: s, ID: id}, nil
}

// Record stores one record's outcome.
func (r *RunRecorder) Record(ctx context.Context, res batch.RecordResult) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	_, err := r.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes (run_id, idx, author, title, doi, outcome, path, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, res.Index, res.Record.Author, res.Record.Title, res.DOI, res.Outcome.String(), res.Path, errText)
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	return nil
}

// Finish stamps the run with its end time and final counts.
func (r *RunRecorder) Finish(ctx context.Context, result batch.Result) error {
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, downloaded = ?, failed = ? WHERE id = ?`,
		time.Now().UTC().Format(timeFormat), result.Downloaded, result.Failed, r.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, input, output_dir, started_at, COALESCE(finished_at, ''), downloaded, failed
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Input, &r.OutputDir, &started, &finished, &r.Downloaded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeFormat, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(timeFormat, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRunID returns the id of the most recent run, or ErrNoRuns.
func (s *Store) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRuns
	}
	if err != nil {
		return 0, fmt.Errorf("querying latest run: %w", err)
	}
	return id, nil
}

// Failures returns the records of run that did not end in a saved
// citation, in input order.
func (s *Store) Failures(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, idx, author, title, COALESCE(doi, ''), outcome, COALESCE(path, ''), COALESCE(error, '')
		 FROM outcomes WHERE run_id = ? AND outcome != ? ORDER BY idx`,
		runID, batch.OutcomeSaved.String())
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Index, &e.Author, &e.Title, &e.DOI, &e.Outcome, &e.Path, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WriteCSV writes entries as an Author,Title CSV that the csv subcommand
// reads back.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{input.AuthorColumn, input.TitleColumn}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Author, e.Title}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
