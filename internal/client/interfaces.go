package client

import (
	"context"
	"errors"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// ErrTransport marks a failure where the message provably never left: no
// responders, closed connection. Safe to retry.
var ErrTransport = errors.New("ledger transport failure")

// ErrAmbiguous marks a failure after the message may have been delivered, such
// as a timeout waiting for the reply. Resending blindly could double-pay; the
// batch must stay open until the outcome is resolved against the ledger.
var ErrAmbiguous = errors.New("ledger outcome unknown")

// SimulationClient previews ledger-side effects of a batch without mutating
// ledger state.
type SimulationClient interface {
	Simulate(ctx context.Context, batch domain.PaymentBatch) (domain.Simulation, error)
}

// DisbursementPublisher delivers a batch to the ledger and returns its
// acknowledgement, or a transport error when the round-trip did not complete.
type DisbursementPublisher interface {
	Send(ctx context.Context, batch domain.PaymentBatch, payeeID, handlerID string) (domain.Acknowledgement, error)
}

// ReconciliationPublisher submits a settlement report to the ledger.
type ReconciliationPublisher interface {
	Publish(ctx context.Context, report domain.ReconciliationReport) error
}
