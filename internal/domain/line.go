package domain

import (
	"time"
)

// LineKind tags what a payment line instructs the ledger to do.
type LineKind string

const (
	// LineNew opens a period with a fresh amount.
	LineNew LineKind = "NY"
	// LineChange replaces the amount for a period already known to the ledger.
	LineChange LineKind = "ENDR"
	// LineReactivation restores a previously stopped period to its historical
	// amount. It carries no amount of its own.
	LineReactivation LineKind = "REAKT"
)

// PaymentLine is one immutable disbursement instruction: an effective period
// and an amount in whole minor currency units (øre).
//
// PredecessorID refers to the line this one supersedes or continues a chain
// from. It is ordering metadata only, never an ownership relation; the ledger
// uses it as its idempotency key.
type PaymentLine struct {
	ID            string
	Period        Period
	Amount        int64
	Kind          LineKind
	PredecessorID string
	CreatedAt     time.Time
}

// Validate checks the line invariants: a well-formed period, a non-negative
// amount, and no amount at all on a reactivation.
func (l PaymentLine) Validate() error {
	if l.ID == "" {
		return &ValidationError{Field: "id", Message: "missing line id"}
	}
	if l.Period.From.After(l.Period.To) {
		return &ValidationError{Field: "period", Message: "from is after to"}
	}
	switch l.Kind {
	case LineNew, LineChange:
		if l.Amount < 0 {
			return &ValidationError{Field: "amount", Message: "amount cannot be negative"}
		}
	case LineReactivation:
		if l.Amount != 0 {
			return &ValidationError{Field: "amount", Message: "reactivation carries no amount of its own"}
		}
	default:
		return &ValidationError{Field: "kind", Message: "unknown line kind " + string(l.Kind)}
	}
	return nil
}
