// Package history persists conversion run records in SQLite so the daemon
// can serve recent-run queries across restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

// Record is one stored conversion run.
type Record struct {
	ID       string              `json:"id"`
	Started  time.Time           `json:"started"`
	Finished time.Time           `json:"finished"`
	Outcome  pipeline.RunOutcome `json:"outcome"`
	Report   *pipeline.RunReport `json:"report,omitempty"`
}

// Store is a SQLite-backed run history.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and initializes) the run history database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		report TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores a finished run and returns its generated id.
func (s *Store) Append(ctx context.Context, report *pipeline.RunReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started, finished, outcome, report) VALUES (?, ?, ?, ?, ?)",
		id, report.Start.Unix(), report.End.Unix(), string(report.Outcome), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first. Reports are included.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started, finished, outcome, report FROM runs ORDER BY started DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Get returns a single run by id, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, started, finished, outcome, report FROM runs WHERE id = ?", id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(scan func(...any) error) (*Record, error) {
	var rec Record
	var started, finished int64
	var outcome, reportJSON string

	if err := scan(&rec.ID, &started, &finished, &outcome, &reportJSON); err != nil {
		return nil, err
	}
	rec.Started = time.Unix(started, 0)
	rec.Finished = time.Unix(finished, 0)
	rec.Outcome = pipeline.RunOutcome(outcome)

	var report pipeline.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	rec.Report = &report
	return &rec, nil
}
