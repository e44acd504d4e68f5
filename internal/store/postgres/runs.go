package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"marketcap/internal/store"

	"github.com/google/uuid"
)

// CreateRun inserts a STARTED run record.
func (s *Store) CreateRun(ctx context.Context, run *store.IngestRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, job_name, status, dry_run, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.JobName, string(run.Status), run.DryRun, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal status, counters and cursor snapshot.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, status store.RunStatus, stats, cursors json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = $1, stats = $2, cursors = $3, finished_at = NOW()
		WHERE id = $4
	`, string(status), []byte(stats), []byte(cursors), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	return nil
}

// GetRunByID returns a run record by its ID.
func (s *Store) GetRunByID(ctx context.Context, id uuid.UUID) (*store.IngestRun, error) {
	var run store.IngestRun
	var status string
	var stats, cursors []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_name, status, dry_run, started_at, finished_at, stats, cursors
		FROM ingest_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.JobName, &status, &run.DryRun, &run.StartedAt, &run.FinishedAt, &stats, &cursors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	run.Status = store.RunStatus(status)
	run.Stats = stats
	run.Cursors = cursors
	return &run, nil
}

// AddRunError appends one per-item error detail to the audit trail.
func (s *Store) AddRunError(ctx context.Context, runID uuid.UUID, source, itemRef, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_errors (run_id, source, item_ref, message)
		VALUES ($1, $2, $3, $4)
	`, runID, source, itemRef, message)
	if err != nil {
		return fmt.Errorf("failed to add run error for %s: %w", runID, err)
	}
	return nil
}
