package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// OppdragPublisher delivers disbursement instructions to the ledger over NATS
// request/reply. The reply is the ledger's kvittering.
type OppdragPublisher struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	log     zerolog.Logger
}

// NewOppdragPublisher creates a publisher on the given dispatch subject.
func NewOppdragPublisher(conn *nats.Conn, subject string, timeout time.Duration, log zerolog.Logger) *OppdragPublisher {
	return &OppdragPublisher{conn: conn, subject: subject, timeout: timeout, log: log}
}

// Send serializes the batch per the instruction schema and performs the
// round-trip. A transport failure is wrapped in ErrTransport: the caller must
// not assume the ledger did not see the instruction.
func (p *OppdragPublisher) Send(ctx context.Context, batch domain.PaymentBatch, payeeID, handlerID string) (domain.Acknowledgement, error) {
	msg := BuildOppdragMessage(batch, payeeID, handlerID, time.Now().UTC())
	data, err := json.Marshal(msg)
	if err != nil {
		return domain.Acknowledgement{}, fmt.Errorf("failed to marshal oppdrag message: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.conn.RequestWithContext(reqCtx, p.subject, data)
	if err != nil {
		switch {
		case isAmbiguous(err):
			return domain.Acknowledgement{}, fmt.Errorf("%w: %v", ErrAmbiguous, err)
		case isTransport(err):
			return domain.Acknowledgement{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return domain.Acknowledgement{}, fmt.Errorf("oppdrag request failed: %w", err)
	}

	var kv Kvittering
	if err := json.Unmarshal(reply.Data, &kv); err != nil {
		return domain.Acknowledgement{}, fmt.Errorf("failed to parse kvittering: %w", err)
	}

	ack := domain.Acknowledgement{
		Outcome:    kv.Outcome(),
		RawPayload: string(reply.Data),
		ReceivedAt: time.Now().UTC(),
	}
	p.log.Info().
		Str("batch_id", batch.ID).
		Str("case_id", batch.CaseID).
		Str("outcome", string(ack.Outcome)).
		Str("alvorlighetsgrad", kv.Alvorlighetsgrad).
		Msg("oppdrag acknowledged")
	return ack, nil
}

func isTransport(err error) bool {
	return errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrConnectionClosed)
}

// isAmbiguous covers failures where the request may already be with the
// ledger: the reply timed out, not the send.
func isAmbiguous(err error) bool {
	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
