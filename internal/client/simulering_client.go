package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// SimuleringClient asks the ledger to preview a batch. Simulation never
// mutates ledger state, so a failure here is always retryable.
type SimuleringClient struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	log     zerolog.Logger
}

// NewSimuleringClient creates a client on the given simulation subject.
func NewSimuleringClient(conn *nats.Conn, subject string, timeout time.Duration, log zerolog.Logger) *SimuleringClient {
	return &SimuleringClient{conn: conn, subject: subject, timeout: timeout, log: log}
}

type simuleringReply struct {
	TotalBelop  int64  `json:"totalBelop"`
	Feilmelding string `json:"feilmelding,omitempty"`
}

// Simulate sends the batch lines and returns the ledger-side preview.
func (c *SimuleringClient) Simulate(ctx context.Context, batch domain.PaymentBatch) (domain.Simulation, error) {
	msg := BuildOppdragMessage(batch, "", "", time.Now().UTC())
	data, err := json.Marshal(msg)
	if err != nil {
		return domain.Simulation{}, fmt.Errorf("failed to marshal simulation request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.conn.RequestWithContext(reqCtx, c.subject, data)
	if err != nil {
		// Simulation never mutates ledger state, so even a timeout is safe
		// to retry.
		if isTransport(err) || isAmbiguous(err) {
			return domain.Simulation{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return domain.Simulation{}, fmt.Errorf("simulation request failed: %w", err)
	}

	var sim simuleringReply
	if err := json.Unmarshal(reply.Data, &sim); err != nil {
		return domain.Simulation{}, fmt.Errorf("failed to parse simulation reply: %w", err)
	}
	if sim.Feilmelding != "" {
		return domain.Simulation{}, fmt.Errorf("simulation rejected: %s", sim.Feilmelding)
	}

	c.log.Debug().
		Str("batch_id", batch.ID).
		Int64("total", sim.TotalBelop).
		Msg("batch simulated")
	return domain.Simulation{
		TotalAmount: sim.TotalBelop,
		RawPayload:  string(reply.Data),
		SimulatedAt: time.Now().UTC(),
	}, nil
}
