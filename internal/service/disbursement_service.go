package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/client"
	"github.com/supstonad/be-utbetaling/internal/config"
	"github.com/supstonad/be-utbetaling/internal/domain"
)

// DisbursementService drives a batch through its lifecycle: derive from the
// benefit calculation, simulate, send, acknowledge. All per-case serialization
// happens inside the store's transactions; the service itself holds no state.
type DisbursementService struct {
	chains    ChainStore
	simulator client.SimulationClient
	publisher client.DisbursementPublisher
	retry     config.RetryConfig
	log       zerolog.Logger
}

// NewDisbursementService creates a new disbursement service.
func NewDisbursementService(
	chains ChainStore,
	simulator client.SimulationClient,
	publisher client.DisbursementPublisher,
	retry config.RetryConfig,
	log zerolog.Logger,
) *DisbursementService {
	return &DisbursementService{
		chains:    chains,
		simulator: simulator,
		publisher: publisher,
		retry:     retry,
		log:       log,
	}
}

// CreateBatch derives the next batch for a case from a fresh benefit
// calculation and persists it.
func (s *DisbursementService) CreateBatch(ctx context.Context, caseID string, monthly []domain.MonthlyAmount) (domain.PaymentBatch, error) {
	chain, err := s.chains.GetChain(ctx, caseID)
	if err != nil {
		return domain.PaymentBatch{}, fmt.Errorf("failed to load chain for case %s: %w", caseID, err)
	}

	batch, err := chain.DeriveNextBatch(monthly, time.Now().UTC())
	if err != nil {
		return domain.PaymentBatch{}, err
	}
	if err := s.chains.CreateBatch(ctx, &batch); err != nil {
		return domain.PaymentBatch{}, err
	}

	s.log.Info().
		Str("batch_id", batch.ID).
		Str("case_id", caseID).
		Int("line_count", len(batch.Lines)).
		Int64("total_amount", batch.TotalAmount()).
		Msg("batch created")
	return batch, nil
}

// Simulate previews a created batch against the ledger. Failure leaves the
// batch in Created; simulation is retryable at will.
func (s *DisbursementService) Simulate(ctx context.Context, batchID string) (domain.PaymentBatch, error) {
	batch, err := s.chains.GetBatch(ctx, batchID)
	if err != nil {
		return domain.PaymentBatch{}, err
	}

	var sim domain.Simulation
	err = withRetry(ctx, s.retry.MaxAttempts, s.retry.BaseBackoff, func() error {
		var simErr error
		sim, simErr = s.simulator.Simulate(ctx, batch)
		return simErr
	})
	if err != nil {
		s.log.Warn().Err(err).Str("batch_id", batchID).Msg("simulation failed, batch unchanged")
		return domain.PaymentBatch{}, err
	}

	batch, err = s.chains.RecordSimulation(ctx, batchID, sim)
	if err != nil {
		return domain.PaymentBatch{}, err
	}
	s.log.Info().
		Str("batch_id", batchID).
		Int64("simulated_total", sim.TotalAmount).
		Msg("batch simulated")
	return batch, nil
}

// Send hands a simulated batch to the ledger.
//
// The batch is marked Sent before the wire handoff: from that point the ledger
// may have seen the instruction even if our side loses the reply. Plain
// transport failures are retried with backoff; an ambiguous outcome leaves the
// batch open in Sent, to be resolved by the ledger's own kvittering, never by
// a blind resend.
func (s *DisbursementService) Send(ctx context.Context, batchID, payeeID, handlerID string) (domain.PaymentBatch, error) {
	batch, err := s.chains.MarkSent(ctx, batchID)
	if err != nil {
		return domain.PaymentBatch{}, err
	}

	var ack domain.Acknowledgement
	err = withRetry(ctx, s.retry.MaxAttempts, s.retry.BaseBackoff, func() error {
		var sendErr error
		ack, sendErr = s.publisher.Send(ctx, batch, payeeID, handlerID)
		return sendErr
	})
	if err != nil {
		if errors.Is(err, client.ErrAmbiguous) {
			s.log.Error().Err(err).
				Str("batch_id", batchID).
				Msg("ledger outcome unknown, batch stays open in Sent")
		} else {
			s.log.Error().Err(err).Str("batch_id", batchID).Msg("send failed")
		}
		return batch, err
	}

	return s.RecordAcknowledgement(ctx, batchID, ack)
}

// RecordAcknowledgement applies the ledger's verdict. A redelivered kvittering
// for an already-terminal batch is a no-op: logged as a conflict, not an error.
func (s *DisbursementService) RecordAcknowledgement(ctx context.Context, batchID string, ack domain.Acknowledgement) (domain.PaymentBatch, error) {
	batch, err := s.chains.RecordAcknowledgement(ctx, batchID, ack)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyAcknowledged) {
			s.log.Warn().
				Str("batch_id", batchID).
				Str("redelivered_outcome", string(ack.Outcome)).
				Msg("kvittering redelivered for terminal batch, ignored")
			return s.chains.GetBatch(ctx, batchID)
		}
		return domain.PaymentBatch{}, err
	}

	event := s.log.Info()
	if batch.Status == domain.BatchAckFailed {
		event = s.log.Error()
	}
	event.
		Str("batch_id", batchID).
		Str("case_id", batch.CaseID).
		Str("status", string(batch.Status)).
		Msg("kvittering recorded")
	return batch, nil
}

// Timeline computes the effective payment schedule for a case from every line
// the ledger has or may still register.
func (s *DisbursementService) Timeline(ctx context.Context, caseID string) (domain.Timeline, error) {
	chain, err := s.chains.GetChain(ctx, caseID)
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("failed to load chain for case %s: %w", caseID, err)
	}
	lines := chain.ActiveLines()
	if len(lines) == 0 {
		return domain.Timeline{}, nil
	}
	return domain.BuildTimeline(lines)
}
