package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// ErrBatchNotFound is returned when a batch id does not exist.
var ErrBatchNotFound = errors.New("batch not found")

// ErrBatchPending is returned when a new batch is created while another one
// for the same case is still awaiting its kvittering.
var ErrBatchPending = errors.New("case already has a batch awaiting acknowledgement")

// ChainRepository persists payment chains: one oppdrag row per case, one
// utbetaling row per batch and one utbetalingslinje row per line.
type ChainRepository struct {
	db *DB
}

// NewChainRepository creates a new chain repository.
func NewChainRepository(db *DB) *ChainRepository {
	return &ChainRepository{db: db}
}

// CreateBatch appends a batch to its case's chain.
//
// The oppdrag row is locked for the duration of the transaction, which
// serializes all mutations per case. At most one batch may be awaiting
// acknowledgement at a time; creation fails with ErrBatchPending otherwise.
func (r *ChainRepository) CreateBatch(ctx context.Context, batch *domain.PaymentBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockCase(ctx, tx, batch.CaseID); err != nil {
			return err
		}

		var pending int
		err := tx.QueryRow(ctx,
			`SELECT count(*) FROM utbetaling WHERE case_id = $1 AND status = $2`,
			batch.CaseID, domain.BatchSent,
		).Scan(&pending)
		if err != nil {
			return fmt.Errorf("failed to check pending batches: %w", err)
		}
		if pending > 0 {
			return ErrBatchPending
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO utbetaling (id, case_id, status, created_at) VALUES ($1, $2, $3, $4)`,
			batch.ID, batch.CaseID, batch.Status, batch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}

		for pos, line := range batch.Lines {
			_, err = tx.Exec(ctx, `
				INSERT INTO utbetalingslinje
				    (id, batch_id, position, period_from, period_to,
				     amount, kind, predecessor_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
			`,
				line.ID, batch.ID, pos, line.Period.From, line.Period.To,
				line.Amount, line.Kind, line.PredecessorID, line.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line %s: %w", line.ID, err)
			}
		}
		return nil
	})
}

// GetChain loads the full batch history for a case, insertion-ordered.
func (r *ChainRepository) GetChain(ctx context.Context, caseID string) (domain.PaymentChain, error) {
	chain := domain.PaymentChain{CaseID: caseID}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, case_id, status, created_at,
		       simulation_total, simulation_payload, simulated_at,
		       ack_outcome, ack_payload, ack_received_at
		FROM utbetaling
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`, caseID)
	if err != nil {
		return chain, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return chain, err
		}
		chain.Batches = append(chain.Batches, batch)
	}
	if err := rows.Err(); err != nil {
		return chain, fmt.Errorf("failed to read batches: %w", err)
	}

	for i := range chain.Batches {
		lines, err := r.loadLines(ctx, chain.Batches[i].ID)
		if err != nil {
			return chain, err
		}
		chain.Batches[i].Lines = lines
	}
	return chain, nil
}

// GetBatch loads a single batch with its lines.
func (r *ChainRepository) GetBatch(ctx context.Context, batchID string) (domain.PaymentBatch, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT id, case_id, status, created_at,
		       simulation_total, simulation_payload, simulated_at,
		       ack_outcome, ack_payload, ack_received_at
		FROM utbetaling
		WHERE id = $1
	`, batchID)

	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batch, ErrBatchNotFound
		}
		return batch, err
	}
	batch.Lines, err = r.loadLines(ctx, batch.ID)
	return batch, err
}

// RecordSimulation stores the preview and moves the batch Created -> Simulated.
// The domain transition runs under the case lock so a concurrent mutation
// cannot interleave.
func (r *ChainRepository) RecordSimulation(ctx context.Context, batchID string, sim domain.Simulation) (domain.PaymentBatch, error) {
	return r.transition(ctx, batchID, func(b domain.PaymentBatch) (domain.PaymentBatch, error) {
		return b.WithSimulation(sim)
	})
}

// MarkSent moves the batch Simulated -> Sent.
func (r *ChainRepository) MarkSent(ctx context.Context, batchID string) (domain.PaymentBatch, error) {
	return r.transition(ctx, batchID, domain.PaymentBatch.MarkSent)
}

// RecordAcknowledgement moves the batch to its terminal state. A redelivered
// kvittering surfaces domain.ErrAlreadyAcknowledged without mutating anything.
func (r *ChainRepository) RecordAcknowledgement(ctx context.Context, batchID string, ack domain.Acknowledgement) (domain.PaymentBatch, error) {
	return r.transition(ctx, batchID, func(b domain.PaymentBatch) (domain.PaymentBatch, error) {
		return b.WithAcknowledgement(ack)
	})
}

// ListBatchesOverlapping returns every batch with at least one line whose
// period overlaps the window, the input set for reconciliation.
func (r *ChainRepository) ListBatchesOverlapping(ctx context.Context, from, to time.Time) ([]domain.PaymentBatch, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT DISTINCT u.id, u.case_id, u.status, u.created_at,
		       u.simulation_total, u.simulation_payload, u.simulated_at,
		       u.ack_outcome, u.ack_payload, u.ack_received_at
		FROM utbetaling u
		JOIN utbetalingslinje l ON l.batch_id = u.id
		WHERE l.period_from <= $2 AND l.period_to >= $1
		ORDER BY u.created_at ASC, u.id ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches in window: %w", err)
	}
	defer rows.Close()

	var batches []domain.PaymentBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batches in window: %w", err)
	}

	for i := range batches {
		lines, err := r.loadLines(ctx, batches[i].ID)
		if err != nil {
			return nil, err
		}
		batches[i].Lines = lines
	}
	return batches, nil
}

func (r *ChainRepository) transition(ctx context.Context, batchID string, fn func(domain.PaymentBatch) (domain.PaymentBatch, error)) (domain.PaymentBatch, error) {
	var result domain.PaymentBatch
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var caseID string
		err := tx.QueryRow(ctx, `SELECT case_id FROM utbetaling WHERE id = $1`, batchID).Scan(&caseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBatchNotFound
			}
			return fmt.Errorf("failed to resolve batch case: %w", err)
		}
		if err := lockCase(ctx, tx, caseID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			SELECT id, case_id, status, created_at,
			       simulation_total, simulation_payload, simulated_at,
			       ack_outcome, ack_payload, ack_received_at
			FROM utbetaling
			WHERE id = $1
		`, batchID)
		batch, err := scanBatch(row)
		if err != nil {
			return err
		}

		batch, err = fn(batch)
		if err != nil {
			return err
		}

		var (
			simTotal   *int64
			simPayload *string
			simAt      *time.Time
			ackOutcome *string
			ackPayload *string
			ackAt      *time.Time
		)
		if batch.Simulated != nil {
			simTotal = &batch.Simulated.TotalAmount
			simPayload = &batch.Simulated.RawPayload
			simAt = &batch.Simulated.SimulatedAt
		}
		if batch.Ack != nil {
			outcome := string(batch.Ack.Outcome)
			ackOutcome = &outcome
			ackPayload = &batch.Ack.RawPayload
			ackAt = &batch.Ack.ReceivedAt
		}

		_, err = tx.Exec(ctx, `
			UPDATE utbetaling
			SET status = $2,
			    simulation_total = $3, simulation_payload = $4, simulated_at = $5,
			    ack_outcome = $6, ack_payload = $7, ack_received_at = $8
			WHERE id = $1
		`, batch.ID, batch.Status, simTotal, simPayload, simAt, ackOutcome, ackPayload, ackAt)
		if err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}

		result = batch
		return nil
	})
	if err != nil {
		return domain.PaymentBatch{}, err
	}
	result.Lines, err = r.loadLines(ctx, result.ID)
	return result, err
}

func (r *ChainRepository) loadLines(ctx context.Context, batchID string) ([]domain.PaymentLine, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, period_from, period_to, amount, kind, COALESCE(predecessor_id, ''), created_at
		FROM utbetalingslinje
		WHERE batch_id = $1
		ORDER BY position ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.PaymentLine
	for rows.Next() {
		var l domain.PaymentLine
		if err := rows.Scan(&l.ID, &l.Period.From, &l.Period.To, &l.Amount, &l.Kind, &l.PredecessorID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// lockCase takes the per-case advisory row lock, creating the oppdrag row on
// first use. This is the transactional boundary that serializes a case.
func lockCase(ctx context.Context, tx pgx.Tx, caseID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO oppdrag (case_id) VALUES ($1) ON CONFLICT (case_id) DO NOTHING`, caseID)
	if err != nil {
		return fmt.Errorf("failed to ensure oppdrag row: %w", err)
	}
	_, err = tx.Exec(ctx, `SELECT case_id FROM oppdrag WHERE case_id = $1 FOR UPDATE`, caseID)
	if err != nil {
		return fmt.Errorf("failed to lock case %s: %w", caseID, err)
	}
	return nil
}

type batchScanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc batchScanner) (domain.PaymentBatch, error) {
	var (
		batch      domain.PaymentBatch
		simTotal   *int64
		simPayload *string
		simAt      *time.Time
		ackOutcome *string
		ackPayload *string
		ackAt      *time.Time
	)
	err := sc.Scan(
		&batch.ID, &batch.CaseID, &batch.Status, &batch.CreatedAt,
		&simTotal, &simPayload, &simAt,
		&ackOutcome, &ackPayload, &ackAt,
	)
	if err != nil {
		return batch, err
	}
	if simTotal != nil {
		batch.Simulated = &domain.Simulation{TotalAmount: *simTotal, SimulatedAt: *simAt}
		if simPayload != nil {
			batch.Simulated.RawPayload = *simPayload
		}
	}
	if ackOutcome != nil {
		batch.Ack = &domain.Acknowledgement{Outcome: domain.AckOutcome(*ackOutcome), ReceivedAt: *ackAt}
		if ackPayload != nil {
			batch.Ack.RawPayload = *ackPayload
		}
	}
	return batch, nil
}
