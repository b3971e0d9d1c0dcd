package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository mirrors pipeline run summaries into Postgres for
// operational dashboards. The file artifacts remain the source of truth;
// every write here is best-effort and callers only log failures.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a run-log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the run-log table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ml_pipeline_runs (
			id          BIGSERIAL PRIMARY KEY,
			run_id      TEXT NOT NULL,
			stage       TEXT NOT NULL,
			summary     JSONB NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create ml_pipeline_runs: %w", err)
	}
	return nil
}

// Record inserts one run summary for a pipeline stage ("dataset_build" or
// "train"). summary may be any JSON-serializable object.
func (r *Repository) Record(ctx context.Context, runID, stage string, summary any, startedAt, finishedAt time.Time) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	query := `
		INSERT INTO ml_pipeline_runs (run_id, stage, summary, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, runID, stage, payload, startedAt, finishedAt); err != nil {
		return fmt.Errorf("failed to insert run summary: %w", err)
	}
	return nil
}

// LastRun returns the most recent finished_at for a stage, or zero time
// when the stage never ran.
func (r *Repository) LastRun(ctx context.Context, stage string) (time.Time, error) {
	query := `
		SELECT finished_at
		FROM ml_pipeline_runs
		WHERE stage = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`
	var finishedAt time.Time
	err := r.pool.QueryRow(ctx, query, stage).Scan(&finishedAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last run: %w", err)
	}
	return finishedAt, nil
}
