package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

func wirePeriod(t *testing.T, from, to time.Time) domain.Period {
	t.Helper()
	p, err := domain.NewPeriod(from, to)
	require.NoError(t, err)
	return p
}

func wireBatch(t *testing.T) domain.PaymentBatch {
	t.Helper()
	created := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	return domain.PaymentBatch{
		ID:        "batch-1",
		CaseID:    "SAK-42",
		CreatedAt: created,
		Status:    domain.BatchSimulated,
		Lines: []domain.PaymentLine{
			{
				ID:        "line-1",
				Period:    wirePeriod(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 4, 30, 0, 0, 0, 0, time.UTC)),
				Amount:    7500,
				Kind:      domain.LineNew,
				CreatedAt: created,
			},
			{
				ID:            "line-2",
				Period:        wirePeriod(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)),
				Amount:        8000,
				Kind:          domain.LineChange,
				PredecessorID: "line-1",
				CreatedAt:     created,
			},
		},
	}
}

func TestBuildOppdragMessage(t *testing.T) {
	now := time.Date(2020, 1, 15, 9, 30, 0, 250000000, time.UTC)
	msg := BuildOppdragMessage(wireBatch(t), "01017012345", "Z990000", now)

	assert.Equal(t, AksjonskodeNy, msg.Aksjonskode)
	assert.Equal(t, "NY", msg.KodeEndring)
	assert.Equal(t, KodeFagomraade, msg.KodeFagomraade)
	assert.Equal(t, "SAK-42", msg.FagsystemID)
	assert.Equal(t, "01017012345", msg.OppdragGjelderID)
	assert.Equal(t, "2020-01-01", msg.DatoGjelderFom)
	assert.Equal(t, "2020-01-15-09.30.00.250000", msg.TidspktMelding)

	require.Len(t, msg.Linjer, 2)
	first := msg.Linjer[0]
	assert.Equal(t, "NY", first.KodeEndringLinje)
	assert.Equal(t, "line-1", first.DelytelseID)
	assert.Equal(t, KlassekodeStonad, first.KodeKlassifik)
	assert.Equal(t, "2020-01-01", first.DatoVedtakFom)
	assert.Equal(t, "2020-04-30", first.DatoVedtakTom)
	assert.Equal(t, int64(7500), first.Sats)
	assert.Equal(t, TypeSatsMonth, first.TypeSats)
	assert.Equal(t, "T", first.FradragTillegg)
	assert.Equal(t, "Z990000", first.SaksbehID)
	assert.Equal(t, "01017012345", first.UtbetalesTilID)
	assert.Empty(t, first.RefDelytelseID)

	second := msg.Linjer[1]
	assert.Equal(t, "ENDR", second.KodeEndringLinje)
	assert.Equal(t, "line-1", second.RefDelytelseID)
	assert.Empty(t, second.KodeStatusLinje)
}

func TestBuildOppdragMessageReactivation(t *testing.T) {
	batch := wireBatch(t)
	batch.Lines = []domain.PaymentLine{
		{
			ID:            "line-3",
			Period:        batch.Lines[0].Period,
			Kind:          domain.LineReactivation,
			PredecessorID: "line-2",
			CreatedAt:     batch.CreatedAt,
		},
	}

	msg := BuildOppdragMessage(batch, "01017012345", "Z990000", time.Now().UTC())
	require.Len(t, msg.Linjer, 1)
	assert.Equal(t, "ENDR", msg.Linjer[0].KodeEndringLinje)
	assert.Equal(t, "REAK", msg.Linjer[0].KodeStatusLinje)
	assert.Zero(t, msg.Linjer[0].Sats)
}

func TestKvitteringOutcome(t *testing.T) {
	tests := []struct {
		severity string
		want     domain.AckOutcome
	}{
		{"00", domain.AckOk},
		{"04", domain.AckWithWarning},
		{"08", domain.AckFailed},
		{"12", domain.AckFailed},
		{"", domain.AckFailed},
	}
	for _, tt := range tests {
		t.Run("severity "+tt.severity, func(t *testing.T) {
			kv := Kvittering{Alvorlighetsgrad: tt.severity}
			assert.Equal(t, tt.want, kv.Outcome())
		})
	}
}

func TestBuildAvstemmingMessage(t *testing.T) {
	report := domain.BuildReconciliation(
		time.Date(2020, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 31, 22, 0, 0, 0, time.UTC),
		nil, "key-1")
	report.Approved = domain.BucketTotal{Count: 3, Sum: 1600, Sign: domain.SignTillegg}
	report.ApprovedWarn = domain.BucketTotal{Count: 1, Sum: 1400, Sign: domain.SignTillegg}
	report.Rejected = domain.BucketTotal{Count: 2, Sum: 10000, Sign: domain.SignTillegg}
	report.Total = domain.BucketTotal{Count: 4, Sum: 3000, Sign: domain.SignTillegg}

	msg := BuildAvstemmingMessage(report)

	assert.Equal(t, "DATA", msg.Aksjon.AksjonType)
	assert.Equal(t, "GRSN", msg.Aksjon.AvstemmingType)
	assert.Equal(t, "key-1", msg.Aksjon.AvleverendeAvstemmingID)
	assert.Equal(t, "2020030108", msg.Aksjon.NokkelFom)
	assert.Equal(t, "2020033122", msg.Aksjon.NokkelTom)

	assert.Equal(t, 4, msg.Total.TotalAntall)
	assert.Equal(t, int64(3000), msg.Total.TotalBelop)
	assert.Equal(t, "T", msg.Total.Fortegn)

	assert.Equal(t, 3, msg.Grunnlag.GodkjentAntall)
	assert.Equal(t, int64(1600), msg.Grunnlag.GodkjentBelop)
	assert.Equal(t, 1, msg.Grunnlag.VarselAntall)
	assert.Equal(t, int64(1400), msg.Grunnlag.VarselBelop)
	assert.Equal(t, 2, msg.Grunnlag.AvvistAntall)
	assert.Equal(t, int64(10000), msg.Grunnlag.AvvistBelop)
	assert.Equal(t, 0, msg.Grunnlag.MangelAntall)
	assert.Empty(t, msg.Detaljer)
}
