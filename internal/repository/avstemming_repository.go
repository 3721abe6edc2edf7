package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// ReconciliationRun is one stored reconciliation execution: the window, the
// run key and the full report as submitted to the ledger.
type ReconciliationRun struct {
	ID         string
	Key        string
	WindowFrom time.Time
	WindowTo   time.Time
	Report     domain.ReconciliationReport
	CreatedAt  time.Time
}

// AvstemmingRepository appends and reads immutable reconciliation runs. Runs
// are audit records; Append is the only mutation exposed.
type AvstemmingRepository struct {
	db *DB
}

// NewAvstemmingRepository creates a new AvstemmingRepository.
func NewAvstemmingRepository(db *DB) *AvstemmingRepository {
	return &AvstemmingRepository{db: db}
}

// Append inserts one run.
func (r *AvstemmingRepository) Append(ctx context.Context, run *ReconciliationRun) error {
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation report: %w", err)
	}

	query := `
		INSERT INTO avstemming
		    (id, run_key, window_from, window_to, report)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.db.Pool().QueryRow(ctx, query,
		run.ID, run.Key, run.WindowFrom, run.WindowTo, reportJSON,
	).Scan(&run.CreatedAt)
}

// ListSince returns runs started at or after the cutoff, oldest first.
func (r *AvstemmingRepository) ListSince(ctx context.Context, cutoff time.Time) ([]*ReconciliationRun, error) {
	query := `
		SELECT id, run_key, window_from, window_to, report, created_at
		FROM avstemming
		WHERE created_at >= $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Pool().Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation runs: %w", err)
	}
	defer rows.Close()

	var runs []*ReconciliationRun
	for rows.Next() {
		run := &ReconciliationRun{}
		var reportJSON []byte
		if err := rows.Scan(&run.ID, &run.Key, &run.WindowFrom, &run.WindowTo, &reportJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation run: %w", err)
		}
		if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reconciliation report: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
