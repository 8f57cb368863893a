// Package db provides PostgreSQL storage for run history and stage artifacts.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Run represents a digest run record
type Run struct {
	ID          uuid.UUID       `json:"id"`
	Date        string          `json:"date"`
	State       string          `json:"state"`
	Summary     json.RawMessage `json:"summary,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// CreateRun records the start of a digest run. The caller generates the run
// ID so the run stays identifiable even when history recording is disabled.
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, date string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO runs (id, run_date, state)
		 VALUES ($1, $2, 'running')`,
		runID, date,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished and stores its summary
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, state string, summary any) error {
	jsonBytes, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE runs SET state = $1, summary = $2, completed_at = NOW() WHERE id = $3`,
		state, jsonBytes, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	var summary []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, to_char(run_date, 'YYYY-MM-DD'), state, summary, started_at, completed_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Date, &run.State, &summary, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Summary = summary
	return &run, nil
}

// ListRuns retrieves recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, to_char(run_date, 'YYYY-MM-DD'), state, summary, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var summary []byte
		if err := rows.Scan(&run.ID, &run.Date, &run.State, &summary, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Summary = summary
		runs = append(runs, run)
	}
	return runs, nil
}
