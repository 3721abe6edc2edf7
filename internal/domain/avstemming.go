package domain

import (
	"time"
)

// Sign is the ledger's add/subtract marker on monetary aggregates.
type Sign string

const (
	SignTillegg Sign = "T"
	SignFradrag Sign = "F"
)

// SignFor returns the conventional sign for an aggregate: Fradrag when owed to
// the agency, Tillegg otherwise. Exactly zero is Tillegg by convention.
func SignFor(sum int64) Sign {
	if sum < 0 {
		return SignFradrag
	}
	return SignTillegg
}

// Fixed-width timestamp layouts at the ledger boundary. Part of the wire
// contract, reproduced bit for bit.
const (
	// WindowStampLayout formats reconciliation window bounds (yyyyMMddHH).
	WindowStampLayout = "2006010215"
	// MessageStampLayout formats message timestamps with microsecond precision.
	MessageStampLayout = "2006-01-02-15.04.05.000000"
)

// Components identifying the two sides of a reconciliation exchange.
const (
	ReconciliationType     = "GRSN"
	SourceComponentCode    = "SUPSTONAD"
	ReceivingComponentCode = "OS"
)

// ReconciliationAction is the header block of a settlement report.
type ReconciliationAction struct {
	Type               string
	SourceComponent    string
	ReceivingComponent string
	Key                string
	WindowFrom         string
	WindowTo           string
}

// BucketTotal is a count plus signed monetary total for one outcome category.
type BucketTotal struct {
	Count int
	Sum   int64
	Sign  Sign
}

// ReconciliationDetail is one batch surfaced for human investigation: every
// rejected or unacknowledged batch in the window gets a record here.
type ReconciliationDetail struct {
	BatchID string
	CaseID  string
	Status  BatchStatus
	Amount  int64
	SentAt  string
}

// ReconciliationReport is the settlement report submitted to the ledger:
// header, settled total, per-category grounds and the detail list.
type ReconciliationReport struct {
	Action       ReconciliationAction
	Total        BucketTotal
	Approved     BucketTotal
	ApprovedWarn BucketTotal
	Rejected     BucketTotal
	Missing      BucketTotal
	Details      []ReconciliationDetail
}

// BuildReconciliation partitions the batches of a window by acknowledgement
// outcome and produces the settlement report.
//
// Only confirmed registrations count toward the settled total: Ok and
// Ok-with-warning. Failed and unacknowledged batches keep their own buckets.
// A batch that cannot be classified is never dropped silently; it lands in the
// missing bucket with a detail record so a human can investigate.
func BuildReconciliation(windowFrom, windowTo time.Time, batches []PaymentBatch, runKey string) ReconciliationReport {
	report := ReconciliationReport{
		Action: ReconciliationAction{
			Type:               ReconciliationType,
			SourceComponent:    SourceComponentCode,
			ReceivingComponent: ReceivingComponentCode,
			Key:                runKey,
			WindowFrom:         windowFrom.Format(WindowStampLayout),
			WindowTo:           windowTo.Format(WindowStampLayout),
		},
	}

	add := func(b *BucketTotal, batch PaymentBatch) {
		b.Count++
		b.Sum += batch.TotalAmount()
	}
	detail := func(batch PaymentBatch) {
		sentAt := ""
		if batch.Ack != nil {
			sentAt = batch.Ack.ReceivedAt.Format(MessageStampLayout)
		}
		report.Details = append(report.Details, ReconciliationDetail{
			BatchID: batch.ID,
			CaseID:  batch.CaseID,
			Status:  batch.Status,
			Amount:  batch.TotalAmount(),
			SentAt:  sentAt,
		})
	}

	for _, batch := range batches {
		switch batch.Status {
		case BatchAckOk:
			add(&report.Approved, batch)
		case BatchAckWarning:
			add(&report.ApprovedWarn, batch)
		case BatchAckFailed:
			add(&report.Rejected, batch)
			detail(batch)
		default:
			// Sent without kvittering, or never handed over at all.
			add(&report.Missing, batch)
			detail(batch)
		}
	}

	report.Total = BucketTotal{
		Count: report.Approved.Count + report.ApprovedWarn.Count,
		Sum:   report.Approved.Sum + report.ApprovedWarn.Sum,
	}
	report.Total.Sign = SignFor(report.Total.Sum)
	report.Approved.Sign = SignFor(report.Approved.Sum)
	report.ApprovedWarn.Sign = SignFor(report.ApprovedWarn.Sum)
	report.Rejected.Sign = SignFor(report.Rejected.Sum)
	report.Missing.Sign = SignFor(report.Missing.Sum)
	return report
}
