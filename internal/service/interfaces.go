package service

import (
	"context"
	"time"

	"github.com/supstonad/be-utbetaling/internal/domain"
	"github.com/supstonad/be-utbetaling/internal/repository"
)

// ChainStore is the persistence boundary for payment chains.
type ChainStore interface {
	CreateBatch(ctx context.Context, batch *domain.PaymentBatch) error
	GetChain(ctx context.Context, caseID string) (domain.PaymentChain, error)
	GetBatch(ctx context.Context, batchID string) (domain.PaymentBatch, error)
	RecordSimulation(ctx context.Context, batchID string, sim domain.Simulation) (domain.PaymentBatch, error)
	MarkSent(ctx context.Context, batchID string) (domain.PaymentBatch, error)
	RecordAcknowledgement(ctx context.Context, batchID string, ack domain.Acknowledgement) (domain.PaymentBatch, error)
	ListBatchesOverlapping(ctx context.Context, from, to time.Time) ([]domain.PaymentBatch, error)
}

// RunStore is the persistence boundary for reconciliation runs.
type RunStore interface {
	Append(ctx context.Context, run *repository.ReconciliationRun) error
	ListSince(ctx context.Context, cutoff time.Time) ([]*repository.ReconciliationRun, error)
}
