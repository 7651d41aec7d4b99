package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		instance    TEXT NOT NULL,
		strategy    TEXT NOT NULL,
		backend     TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		status      TEXT NOT NULL DEFAULT 'running',
		best_cost   INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS solutions (
		id                     TEXT PRIMARY KEY,
		run_id                 TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		phase                  TEXT NOT NULL,
		cost                   INTEGER NOT NULL,
		submodel_cost          REAL NOT NULL,
		penalty_room_capacity  INTEGER NOT NULL,
		penalty_min_days       INTEGER NOT NULL,
		penalty_compactness    INTEGER NOT NULL,
		penalty_room_stability INTEGER NOT NULL,
		discovered_ms          INTEGER NOT NULL,
		timetable              TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS neighbourhoods (
		id               TEXT PRIMARY KEY,
		run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		phase            TEXT NOT NULL,
		cost             REAL NOT NULL,
		lower_bound      REAL NOT NULL,
		fixed            INTEGER NOT NULL,
		preprocessed     INTEGER NOT NULL,
		discovered_ms    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bounds (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tag           TEXT NOT NULL,
		value         REAL NOT NULL,
		discovered_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_solutions_run ON solutions(run_id, cost)`,
}

// Store archives runs and what they found in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path, ":memory:" included, and migrates it.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across statements
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	for i, statement := range migrations {
		if _, err := db.Exec(statement); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

type Run struct {
	Id         string
	Instance   string
	Strategy   string
	Backend    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	BestCost   *int
}

type Solution struct {
	Id                   string
	RunId                string
	Phase                string
	Cost                 int
	SubmodelCost         float64
	PenaltyRoomCapacity  int
	PenaltyMinCourseDays int
	PenaltyCompactness   int
	PenaltyRoomStability int
	Discovered           time.Duration
	Timetable            string // One "course room day periodWithin" line per session
}

// CreateRun registers a run, generating its id when empty.
func (store *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.Id == "" {
		run.Id = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = "running"
	}
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO runs (id, instance, strategy, backend, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Id, run.Instance, run.Strategy, run.Backend, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Status)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status and the best cost among its solutions.
func (store *Store) FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error {
	result, err := store.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, best_cost = (SELECT MIN(cost) FROM solutions WHERE run_id = ?) WHERE id = ?`,
		status, finishedAt.UTC().Format(time.RFC3339Nano), id, id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finishing run: run %v not found", id)
	}
	return nil
}

func (store *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := store.db.QueryContext(ctx,
		`SELECT id, instance, strategy, backend, started_at, finished_at, status, best_cost FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString
		var bestCost sql.NullInt64
		if err := rows.Scan(&run.Id, &run.Instance, &run.Strategy, &run.Backend, &startedAt, &finishedAt, &run.Status, &bestCost); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing start of run %v: %w", run.Id, err)
		}
		if finishedAt.Valid {
			finished, err := time.Parse(time.RFC3339Nano, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end of run %v: %w", run.Id, err)
			}
			run.FinishedAt = &finished
		}
		if bestCost.Valid {
			cost := int(bestCost.Int64)
			run.BestCost = &cost
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Solutions lists the solutions of a run, cheapest first.
func (store *Store) Solutions(ctx context.Context, runId string) ([]Solution, error) {
	rows, err := store.db.QueryContext(ctx,
		`SELECT id, run_id, phase, cost, submodel_cost, penalty_room_capacity, penalty_min_days, penalty_compactness,
			penalty_room_stability, discovered_ms, timetable
		FROM solutions WHERE run_id = ? ORDER BY cost, discovered_ms`, runId)
	if err != nil {
		return nil, fmt.Errorf("listing solutions: %w", err)
	}
	defer rows.Close()

	solutions := make([]Solution, 0)
	for rows.Next() {
		var solution Solution
		var discovered int64
		if err := rows.Scan(&solution.Id, &solution.RunId, &solution.Phase, &solution.Cost, &solution.SubmodelCost,
			&solution.PenaltyRoomCapacity, &solution.PenaltyMinCourseDays, &solution.PenaltyCompactness,
			&solution.PenaltyRoomStability, &discovered, &solution.Timetable); err != nil {
			return nil, fmt.Errorf("scanning solution: %w", err)
		}
		solution.Discovered = time.Duration(discovered) * time.Millisecond
		solutions = append(solutions, solution)
	}
	return solutions, rows.Err()
}

func (store *Store) CountNeighbourhoods(ctx context.Context, runId string) (int, error) {
	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM neighbourhoods WHERE run_id = ?`, runId).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting neighbourhoods: %w", err)
	}
	return count, nil
}
