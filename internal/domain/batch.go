package domain

import (
	"fmt"
	"time"
)

// BatchStatus is the lifecycle state of a payment batch, mirroring the
// ledger's own acceptance protocol.
type BatchStatus string

const (
	BatchCreated   BatchStatus = "OPPRETTET"
	BatchSimulated BatchStatus = "SIMULERT"
	BatchSent      BatchStatus = "SENDT"
	// Terminal states. The ledger registered the instruction for OK and
	// OK-with-warning; it registered nothing for failed.
	BatchAckOk      BatchStatus = "KVITTERT_OK"
	BatchAckWarning BatchStatus = "KVITTERT_MED_VARSEL"
	BatchAckFailed  BatchStatus = "KVITTERT_FEIL"
)

// Terminal reports whether no further transitions are permitted.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchAckOk, BatchAckWarning, BatchAckFailed:
		return true
	}
	return false
}

// AckOutcome is the ledger's verdict on a sent batch.
type AckOutcome string

const (
	AckOk          AckOutcome = "OK"
	AckWithWarning AckOutcome = "OK_MED_VARSEL"
	AckFailed      AckOutcome = "FEILET"
)

// Acknowledgement is the ledger's reply to a sent batch, kept verbatim for audit.
type Acknowledgement struct {
	Outcome    AckOutcome
	RawPayload string
	ReceivedAt time.Time
}

// Simulation is the ledger-side preview of a batch before it is sent.
type Simulation struct {
	TotalAmount int64
	RawPayload  string
	SimulatedAt time.Time
}

// PaymentBatch is a group of payment lines created together and submitted to
// the ledger as one instruction. The batch itself is immutable; lifecycle
// transitions return a new value.
type PaymentBatch struct {
	ID        string
	CaseID    string
	CreatedAt time.Time
	Lines     []PaymentLine
	Status    BatchStatus

	Simulated *Simulation
	Ack       *Acknowledgement
}

// Validate checks the batch invariants: at least one line, every line valid,
// and lines pairwise period-disjoint within the batch. Disjointness across
// batches is resolved by the timeline, not enforced here.
func (b PaymentBatch) Validate() error {
	if b.CaseID == "" {
		return &ValidationError{Field: "case_id", Message: "missing case id"}
	}
	if len(b.Lines) == 0 {
		return &ValidationError{Field: "lines", Message: "batch must have at least 1 line"}
	}
	for i, l := range b.Lines {
		if err := l.Validate(); err != nil {
			return err
		}
		for _, other := range b.Lines[i+1:] {
			if l.Period.Overlaps(other.Period) {
				return &ValidationError{
					Field:   "lines",
					Message: fmt.Sprintf("periods %s and %s overlap within the batch", l.Period, other.Period),
				}
			}
		}
	}
	return nil
}

// TotalAmount sums the amounts of every line in the batch.
func (b PaymentBatch) TotalAmount() int64 {
	var sum int64
	for _, l := range b.Lines {
		sum += l.Amount
	}
	return sum
}

// LastLine returns the final line of the batch; the next batch's first line
// links its predecessor pointer here.
func (b PaymentBatch) LastLine() PaymentLine {
	return b.Lines[len(b.Lines)-1]
}

// WithSimulation records a simulation preview, moving Created -> Simulated.
func (b PaymentBatch) WithSimulation(sim Simulation) (PaymentBatch, error) {
	if b.Status != BatchCreated {
		return b, fmt.Errorf("%w: cannot simulate batch in status %s", ErrIllegalTransition, b.Status)
	}
	b.Simulated = &sim
	b.Status = BatchSimulated
	return b, nil
}

// MarkSent moves Simulated -> Sent. From this point the ledger may have seen
// the instruction even if the acknowledgement is lost, so the batch stays open
// until a kvittering arrives.
func (b PaymentBatch) MarkSent() (PaymentBatch, error) {
	if b.Status != BatchSimulated {
		return b, fmt.Errorf("%w: cannot send batch in status %s", ErrIllegalTransition, b.Status)
	}
	b.Status = BatchSent
	return b, nil
}

// WithAcknowledgement records the ledger's verdict, moving Sent -> terminal.
// Re-acknowledging a terminal batch returns ErrAlreadyAcknowledged; the ledger
// is known to occasionally redeliver kvitteringer, so callers log and ignore it.
func (b PaymentBatch) WithAcknowledgement(ack Acknowledgement) (PaymentBatch, error) {
	if b.Status.Terminal() {
		return b, ErrAlreadyAcknowledged
	}
	if b.Status != BatchSent {
		return b, fmt.Errorf("%w: cannot acknowledge batch in status %s", ErrIllegalTransition, b.Status)
	}
	switch ack.Outcome {
	case AckOk:
		b.Status = BatchAckOk
	case AckWithWarning:
		b.Status = BatchAckWarning
	case AckFailed:
		b.Status = BatchAckFailed
	default:
		return b, &ValidationError{Field: "outcome", Message: "unknown acknowledgement outcome " + string(ack.Outcome)}
	}
	b.Ack = &ack
	return b, nil
}

// Registered reports whether the ledger has, or may still, register this batch.
// Only a failed kvittering proves the ledger saw nothing.
func (b PaymentBatch) Registered() bool {
	return b.Status != BatchAckFailed
}

// SentToLedger reports whether the batch has been handed to the ledger and not
// rejected: Sent, or acknowledged Ok / Ok-with-warning.
func (b PaymentBatch) SentToLedger() bool {
	switch b.Status {
	case BatchSent, BatchAckOk, BatchAckWarning:
		return true
	}
	return false
}
