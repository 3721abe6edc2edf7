package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MonthlyAmount is one month's payable amount as delivered by the benefit
// calculator: whole minor currency units, months contiguous and gapless
// within a calculation span.
type MonthlyAmount struct {
	Month  time.Time
	Amount int64
}

// PaymentChain is the full ordered history of payment batches for one case.
// Insertion order is chronological order of creation, which is not necessarily
// the ledger's processing order.
type PaymentChain struct {
	CaseID  string
	Batches []PaymentBatch
}

// LatestSentBatch returns the most recent batch the ledger has registered or
// may still register: status Sent, Ok or Ok-with-warning. Failed batches are
// skipped because the ledger never registered them.
func (c PaymentChain) LatestSentBatch() (PaymentBatch, bool) {
	for i := len(c.Batches) - 1; i >= 0; i-- {
		if c.Batches[i].SentToLedger() {
			return c.Batches[i], true
		}
	}
	return PaymentBatch{}, false
}

// ActiveLines collects every line across all non-failed batches, the input to
// timeline construction. Lines of a failed batch are excluded: the ledger
// registered nothing for them.
func (c PaymentChain) ActiveLines() []PaymentLine {
	var lines []PaymentLine
	for _, b := range c.Batches {
		if b.Status == BatchAckFailed {
			continue
		}
		lines = append(lines, b.Lines...)
	}
	return lines
}

// DeriveNextBatch turns a dense list of monthly amounts into a new batch.
//
// Consecutive months with an identical amount are grouped into maximal
// contiguous periods, one line per period. The ledger bills per contiguous
// period, not per month, and enforces line-count limits, so the grouping must
// be the coarsest partition consistent with one amount per period.
//
// Lines are linked forward in time through their predecessor pointers; the
// first line continues the chain from the latest non-failed batch's last line.
// Pure computation: the caller persists and transmits the result.
func (c PaymentChain) DeriveNextBatch(monthly []MonthlyAmount, now time.Time) (PaymentBatch, error) {
	if len(monthly) == 0 {
		return PaymentBatch{}, &ValidationError{Field: "monthly", Message: "calculation span is empty"}
	}
	for i, m := range monthly {
		if m.Amount < 0 {
			return PaymentBatch{}, &ValidationError{Field: "monthly", Message: fmt.Sprintf("amount for %s is negative", m.Month.Format("2006-01"))}
		}
		if i == 0 {
			continue
		}
		prev := monthly[i-1].Month
		if !sameMonth(prev.AddDate(0, 1, 0), m.Month) {
			return PaymentBatch{}, &ValidationError{
				Field:   "monthly",
				Message: fmt.Sprintf("months %s and %s are not contiguous", prev.Format("2006-01"), m.Month.Format("2006-01")),
			}
		}
	}

	kind := LineNew
	predecessor := ""
	if prev, ok := c.LatestSentBatch(); ok {
		kind = LineChange
		predecessor = prev.LastLine().ID
	}

	batch := PaymentBatch{
		ID:        uuid.NewString(),
		CaseID:    c.CaseID,
		CreatedAt: now,
		Status:    BatchCreated,
	}

	runStart := 0
	for i := 1; i <= len(monthly); i++ {
		if i < len(monthly) && monthly[i].Amount == monthly[runStart].Amount {
			continue
		}
		period, err := MonthSpan(monthly[runStart].Month, monthly[i-1].Month)
		if err != nil {
			return PaymentBatch{}, err
		}
		line := PaymentLine{
			ID:            uuid.NewString(),
			Period:        period,
			Amount:        monthly[runStart].Amount,
			Kind:          kind,
			PredecessorID: predecessor,
			CreatedAt:     now,
		}
		batch.Lines = append(batch.Lines, line)
		predecessor = line.ID
		runStart = i
	}

	if err := batch.Validate(); err != nil {
		return PaymentBatch{}, err
	}
	return batch, nil
}

// LineByID resolves a line id across the whole chain. The predecessor pointers
// are plain ids; this is the out-of-band index that turns them into lines.
func (c PaymentChain) LineByID(id string) (PaymentLine, bool) {
	for _, b := range c.Batches {
		for _, l := range b.Lines {
			if l.ID == id {
				return l, true
			}
		}
	}
	return PaymentLine{}, false
}

// AwaitingAck reports whether some batch is sent but not yet acknowledged.
// At most one batch may be in that state per case; the transactional boundary
// around batch creation relies on this check.
func (c PaymentChain) AwaitingAck() bool {
	for _, b := range c.Batches {
		if b.Status == BatchSent {
			return true
		}
	}
	return false
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
