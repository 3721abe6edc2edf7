package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// AvstemmingPublisher submits settlement reports to the ledger. Unlike
// notification-style events, a lost report matters: errors propagate so the
// service can retry and surface them.
type AvstemmingPublisher struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewAvstemmingPublisher creates a publisher on the given reconciliation subject.
func NewAvstemmingPublisher(conn *nats.Conn, subject string, log zerolog.Logger) *AvstemmingPublisher {
	return &AvstemmingPublisher{conn: conn, subject: subject, log: log}
}

// Publish serializes and sends the report, flushing to confirm handoff.
func (p *AvstemmingPublisher) Publish(ctx context.Context, report domain.ReconciliationReport) error {
	msg := BuildAvstemmingMessage(report)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal avstemming message: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	p.log.Info().
		Str("run_key", report.Action.Key).
		Str("window_from", report.Action.WindowFrom).
		Str("window_to", report.Action.WindowTo).
		Int("total_count", report.Total.Count).
		Int64("total_sum", report.Total.Sum).
		Msg("avstemming published")
	return nil
}
