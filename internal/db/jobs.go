package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetLastRun returns when job last ran, or nil if it never has.
func (db *DB) GetLastRun(ctx context.Context, job string) (*time.Time, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT last_run_at FROM job_runs WHERE job = ?`, job).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid last run time %q: %w", raw, err)
	}
	return &t, nil
}

// RecordRun stores the time and a short result summary for job.
func (db *DB) RecordRun(ctx context.Context, job string, at time.Time, result string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO job_runs (job, last_run_at, last_result) VALUES (?, ?, ?)
		ON CONFLICT(job) DO UPDATE SET last_run_at = excluded.last_run_at, last_result = excluded.last_result
	`, job, at.UTC().Format(time.RFC3339Nano), result)
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}
