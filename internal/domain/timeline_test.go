package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(t *testing.T, kind LineKind, from, to time.Time, amount int64, createdAt time.Time) PaymentLine {
	t.Helper()
	return PaymentLine{
		ID:        uuid.NewString(),
		Period:    period(t, from, to),
		Amount:    amount,
		Kind:      kind,
		CreatedAt: createdAt,
	}
}

func TestBuildTimelineDisjointLines(t *testing.T) {
	t0 := date(2020, 1, 15)
	lines := []PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 4, 30), 100, t0),
		line(t, LineNew, date(2020, 5, 1), date(2020, 12, 31), 200, t0),
	}

	tl, err := BuildTimeline(lines)
	require.NoError(t, err)

	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, period(t, date(2020, 1, 1), date(2020, 4, 30)), entries[0].Period)
	assert.Equal(t, int64(100), entries[0].Amount)
	assert.Equal(t, period(t, date(2020, 5, 1), date(2020, 12, 31)), entries[1].Period)
	assert.Equal(t, int64(200), entries[1].Amount)
}

func TestBuildTimelineMostRecentWins(t *testing.T) {
	older := line(t, LineNew, date(2020, 1, 1), date(2020, 12, 31), 100, date(2020, 1, 1))
	newer := line(t, LineChange, date(2020, 6, 1), date(2020, 12, 31), 250, date(2020, 6, 1))

	tl, err := BuildTimeline([]PaymentLine{older, newer})
	require.NoError(t, err)

	entries := tl.Entries()
	require.Len(t, entries, 2)
	// Older amount survives only on its non-overlapping remainder.
	assert.Equal(t, period(t, date(2020, 1, 1), date(2020, 5, 31)), entries[0].Period)
	assert.Equal(t, int64(100), entries[0].Amount)
	assert.Equal(t, older.ID, entries[0].LineID)
	// Newer amount wins on the overlap.
	assert.Equal(t, period(t, date(2020, 6, 1), date(2020, 12, 31)), entries[1].Period)
	assert.Equal(t, int64(250), entries[1].Amount)
	assert.Equal(t, newer.ID, entries[1].LineID)
}

func TestBuildTimelineIdempotent(t *testing.T) {
	lines := []PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 12, 31), 100, date(2020, 1, 1)),
		line(t, LineChange, date(2020, 3, 1), date(2020, 8, 31), 0, date(2020, 3, 1)),
		line(t, LineChange, date(2020, 6, 1), date(2020, 10, 31), 400, date(2020, 6, 1)),
	}

	first, err := BuildTimeline(lines)
	require.NoError(t, err)
	second, err := BuildTimeline(lines)
	require.NoError(t, err)
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestBuildTimelineNonOverlapPostcondition(t *testing.T) {
	lines := []PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 12, 31), 100, date(2020, 1, 1)),
		line(t, LineChange, date(2020, 3, 1), date(2020, 5, 31), 150, date(2020, 4, 1)),
		line(t, LineChange, date(2020, 5, 1), date(2020, 9, 30), 175, date(2020, 7, 1)),
	}

	tl, err := BuildTimeline(lines)
	require.NoError(t, err)

	entries := tl.Entries()
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Period.EndsBefore(entries[i].Period),
			"entries %s and %s must not intersect", entries[i-1].Period, entries[i].Period)
	}
}

func TestBuildTimelineReactivationRoundTrip(t *testing.T) {
	p := period(t, date(2020, 1, 1), date(2020, 12, 31))
	original := line(t, LineNew, p.From, p.To, 5000, date(2020, 1, 1))
	stop := line(t, LineChange, p.From, p.To, 0, date(2020, 5, 1))
	reactivation := line(t, LineReactivation, p.From, p.To, 0, date(2020, 8, 1))

	tl, err := BuildTimeline([]PaymentLine{original, stop, reactivation})
	require.NoError(t, err)

	entries := tl.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, p, entries[0].Period)
	assert.Equal(t, int64(5000), entries[0].Amount)
	assert.Equal(t, reactivation.ID, entries[0].LineID)
}

func TestBuildTimelineReactivationPartialHistory(t *testing.T) {
	// Two historical New lines with different amounts; the reactivation spans
	// both and must recover each amount on its own stretch.
	first := line(t, LineNew, date(2020, 1, 1), date(2020, 6, 30), 100, date(2020, 1, 1))
	second := line(t, LineNew, date(2020, 7, 1), date(2020, 12, 31), 200, date(2020, 7, 1))
	stop := line(t, LineChange, date(2020, 1, 1), date(2020, 12, 31), 0, date(2020, 9, 1))
	reactivation := line(t, LineReactivation, date(2020, 1, 1), date(2020, 12, 31), 0, date(2020, 11, 1))

	tl, err := BuildTimeline([]PaymentLine{first, second, stop, reactivation})
	require.NoError(t, err)

	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].Amount)
	assert.Equal(t, period(t, date(2020, 1, 1), date(2020, 6, 30)), entries[0].Period)
	assert.Equal(t, int64(200), entries[1].Amount)
	assert.Equal(t, period(t, date(2020, 7, 1), date(2020, 12, 31)), entries[1].Period)
}

func TestBuildTimelineReactivationCoverageMismatchFails(t *testing.T) {
	// History only covers January-June; reactivating the whole year cannot be
	// reconstructed and must halt.
	original := line(t, LineNew, date(2020, 1, 1), date(2020, 6, 30), 100, date(2020, 1, 1))
	reactivation := line(t, LineReactivation, date(2020, 1, 1), date(2020, 12, 31), 0, date(2020, 8, 1))

	_, err := BuildTimeline([]PaymentLine{original, reactivation})
	var ierr *InconsistencyError
	assert.ErrorAs(t, err, &ierr)
}

func TestBuildTimelineRejectsEmptyInput(t *testing.T) {
	_, err := BuildTimeline(nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTimelineAmountOn(t *testing.T) {
	tl, err := BuildTimeline([]PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 4, 30), 100, date(2020, 1, 1)),
		line(t, LineNew, date(2020, 8, 1), date(2020, 12, 31), 200, date(2020, 1, 1)),
	})
	require.NoError(t, err)

	amount, ok := tl.AmountOn(date(2020, 3, 15))
	require.True(t, ok)
	assert.Equal(t, int64(100), amount)

	amount, ok = tl.AmountOn(date(2020, 12, 31))
	require.True(t, ok)
	assert.Equal(t, int64(200), amount)

	// June falls in the gap.
	_, ok = tl.AmountOn(date(2020, 6, 15))
	assert.False(t, ok)
}

func TestTimelineShrink(t *testing.T) {
	tl, err := BuildTimeline([]PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 4, 30), 100, date(2020, 1, 1)),
		line(t, LineNew, date(2020, 8, 1), date(2020, 12, 31), 200, date(2020, 1, 1)),
	})
	require.NoError(t, err)

	shrunk, ok := tl.Shrink(period(t, date(2020, 3, 1), date(2020, 9, 30)))
	require.True(t, ok)
	entries := shrunk.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, period(t, date(2020, 3, 1), date(2020, 4, 30)), entries[0].Period)
	assert.Equal(t, period(t, date(2020, 8, 1), date(2020, 9, 30)), entries[1].Period)

	// Window entirely inside the gap.
	_, ok = tl.Shrink(period(t, date(2020, 5, 1), date(2020, 7, 31)))
	assert.False(t, ok)
}

func TestTimelineEquivalentWithin(t *testing.T) {
	// Same schedule, but one history splits the year in two lines.
	whole, err := BuildTimeline([]PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 12, 31), 100, date(2020, 1, 1)),
	})
	require.NoError(t, err)

	split, err := BuildTimeline([]PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 6, 30), 100, date(2020, 1, 1)),
		line(t, LineNew, date(2020, 7, 1), date(2020, 12, 31), 100, date(2020, 1, 1)),
	})
	require.NoError(t, err)

	window := period(t, date(2020, 2, 1), date(2020, 11, 30))
	assert.True(t, whole.EquivalentWithin(split, window))

	different, err := BuildTimeline([]PaymentLine{
		line(t, LineNew, date(2020, 1, 1), date(2020, 12, 31), 150, date(2020, 1, 1)),
	})
	require.NoError(t, err)
	assert.False(t, whole.EquivalentWithin(different, window))
}
