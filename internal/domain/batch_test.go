package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createdBatch(t *testing.T) PaymentBatch {
	t.Helper()
	return PaymentBatch{
		ID:        uuid.NewString(),
		CaseID:    "SAK-1",
		CreatedAt: date(2020, 1, 1),
		Status:    BatchCreated,
		Lines: []PaymentLine{
			line(t, LineNew, date(2020, 1, 1), date(2020, 6, 30), 1000, date(2020, 1, 1)),
		},
	}
}

func TestBatchLifecycleHappyPath(t *testing.T) {
	b := createdBatch(t)

	b, err := b.WithSimulation(Simulation{TotalAmount: 6000, SimulatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, BatchSimulated, b.Status)

	b, err = b.MarkSent()
	require.NoError(t, err)
	assert.Equal(t, BatchSent, b.Status)

	b, err = b.WithAcknowledgement(Acknowledgement{Outcome: AckOk, ReceivedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, BatchAckOk, b.Status)
	assert.True(t, b.Status.Terminal())
}

func TestBatchIllegalTransitions(t *testing.T) {
	b := createdBatch(t)

	_, err := b.MarkSent()
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = b.WithAcknowledgement(Acknowledgement{Outcome: AckOk})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	sim, err := b.WithSimulation(Simulation{})
	require.NoError(t, err)
	_, err = sim.WithSimulation(Simulation{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestBatchRedeliveredAcknowledgement(t *testing.T) {
	b := createdBatch(t)
	b, _ = b.WithSimulation(Simulation{})
	b, _ = b.MarkSent()

	b, err := b.WithAcknowledgement(Acknowledgement{Outcome: AckWithWarning})
	require.NoError(t, err)
	assert.Equal(t, BatchAckWarning, b.Status)

	// The ledger redelivers; the batch must not change.
	again, err := b.WithAcknowledgement(Acknowledgement{Outcome: AckFailed})
	assert.ErrorIs(t, err, ErrAlreadyAcknowledged)
	assert.Equal(t, BatchAckWarning, again.Status)
}

func TestBatchValidateOverlappingLines(t *testing.T) {
	b := createdBatch(t)
	b.Lines = append(b.Lines,
		line(t, LineNew, date(2020, 6, 1), date(2020, 12, 31), 500, date(2020, 1, 1)))

	var verr *ValidationError
	assert.ErrorAs(t, b.Validate(), &verr)
}

func TestLineValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PaymentLine)
		wantErr bool
	}{
		{name: "valid new line", mutate: func(l *PaymentLine) {}},
		{name: "negative amount", mutate: func(l *PaymentLine) { l.Amount = -1 }, wantErr: true},
		{name: "unknown kind", mutate: func(l *PaymentLine) { l.Kind = "X" }, wantErr: true},
		{name: "reactivation with amount", mutate: func(l *PaymentLine) {
			l.Kind = LineReactivation
			l.Amount = 100
		}, wantErr: true},
		{name: "reactivation without amount", mutate: func(l *PaymentLine) {
			l.Kind = LineReactivation
			l.Amount = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(t, LineNew, date(2020, 1, 1), date(2020, 6, 30), 1000, date(2020, 1, 1))
			tt.mutate(&l)
			err := l.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBatchRegistered(t *testing.T) {
	b := createdBatch(t)
	b, _ = b.WithSimulation(Simulation{})
	b, _ = b.MarkSent()

	failed, err := b.WithAcknowledgement(Acknowledgement{Outcome: AckFailed})
	require.NoError(t, err)
	assert.False(t, failed.Registered())
	assert.False(t, failed.SentToLedger())

	ok, err := b.WithAcknowledgement(Acknowledgement{Outcome: AckOk})
	require.NoError(t, err)
	assert.True(t, ok.Registered())
	assert.True(t, ok.SentToLedger())
}
