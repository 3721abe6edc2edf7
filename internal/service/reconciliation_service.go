package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/client"
	"github.com/supstonad/be-utbetaling/internal/config"
	"github.com/supstonad/be-utbetaling/internal/domain"
	"github.com/supstonad/be-utbetaling/internal/repository"
)

// ReconciliationService builds and submits periodic settlement reports against
// the ledger. When a run happens is decided elsewhere; this service only
// executes one.
type ReconciliationService struct {
	chains    ChainStore
	runs      RunStore
	publisher client.ReconciliationPublisher
	retry     config.RetryConfig
	log       zerolog.Logger
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(
	chains ChainStore,
	runs RunStore,
	publisher client.ReconciliationPublisher,
	retry config.RetryConfig,
	log zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		chains:    chains,
		runs:      runs,
		publisher: publisher,
		retry:     retry,
		log:       log,
	}
}

// Run reconciles every batch whose lines overlap the window: builds the
// report, stores the run, then publishes. Publishing is retried on transport
// failure; a run that could not be published is surfaced as an error even
// though it is already stored locally.
func (s *ReconciliationService) Run(ctx context.Context, from, to time.Time) (*repository.ReconciliationRun, error) {
	batches, err := s.chains.ListBatchesOverlapping(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches for window: %w", err)
	}

	runID := uuid.NewString()
	report := domain.BuildReconciliation(from, to, batches, runID)

	run := &repository.ReconciliationRun{
		ID:         runID,
		Key:        report.Action.Key,
		WindowFrom: from,
		WindowTo:   to,
		Report:     report,
	}
	if err := s.runs.Append(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store reconciliation run: %w", err)
	}

	err = withRetry(ctx, s.retry.MaxAttempts, s.retry.BaseBackoff, func() error {
		return s.publisher.Publish(ctx, report)
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("run_key", run.Key).
			Msg("reconciliation stored but not published")
		return run, fmt.Errorf("failed to publish reconciliation: %w", err)
	}

	s.log.Info().
		Str("run_key", run.Key).
		Int("batch_count", len(batches)).
		Int("approved", report.Approved.Count).
		Int("warnings", report.ApprovedWarn.Count).
		Int("rejected", report.Rejected.Count).
		Int("missing", report.Missing.Count).
		Int64("settled_sum", report.Total.Sum).
		Msg("reconciliation completed")
	return run, nil
}

// RunsSince returns the stored runs started at or after the cutoff, oldest
// first.
func (s *ReconciliationService) RunsSince(ctx context.Context, cutoff time.Time) ([]*repository.ReconciliationRun, error) {
	runs, err := s.runs.ListSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	return runs, nil
}
