package domain

import (
	"fmt"
	"time"
)

// Period is an inclusive calendar interval [From, To] at date granularity.
// Time-of-day components are ignored; both bounds are normalized to midnight UTC.
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod creates a period, rejecting From > To.
func NewPeriod(from, to time.Time) (Period, error) {
	p := Period{From: dateOnly(from), To: dateOnly(to)}
	if p.From.After(p.To) {
		return Period{}, &ValidationError{Field: "period", Message: fmt.Sprintf("from %s is after to %s", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly))}
	}
	return p, nil
}

// MonthSpan builds the period covering whole months from first to last, inclusive.
func MonthSpan(first, last time.Time) (Period, error) {
	f := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	l := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	return NewPeriod(f, l)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the date t falls within the period.
func (p Period) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(p.From) && !d.After(p.To)
}

// Overlaps reports whether the two periods share at least one date.
func (p Period) Overlaps(o Period) bool {
	return !p.From.After(o.To) && !o.From.After(p.To)
}

// Equal reports whether both bounds coincide.
func (p Period) Equal(o Period) bool {
	return p.From.Equal(o.From) && p.To.Equal(o.To)
}

// Intersect returns the common sub-period, if any.
func (p Period) Intersect(o Period) (Period, bool) {
	if !p.Overlaps(o) {
		return Period{}, false
	}
	from := p.From
	if o.From.After(from) {
		from = o.From
	}
	to := p.To
	if o.To.Before(to) {
		to = o.To
	}
	return Period{From: from, To: to}, true
}

// Subtract returns the parts of p not covered by o: zero, one or two remainders,
// in ascending order.
func (p Period) Subtract(o Period) []Period {
	if !p.Overlaps(o) {
		return []Period{p}
	}
	var out []Period
	if p.From.Before(o.From) {
		out = append(out, Period{From: p.From, To: o.From.AddDate(0, 0, -1)})
	}
	if p.To.After(o.To) {
		out = append(out, Period{From: o.To.AddDate(0, 0, 1), To: p.To})
	}
	return out
}

// EndsBefore reports whether p ends strictly before o begins. Adjacent periods
// (p.To is the day before o.From) satisfy this; overlapping ones do not.
func (p Period) EndsBefore(o Period) bool {
	return p.To.Before(o.From)
}

func (p Period) String() string {
	return p.From.Format(time.DateOnly) + ".." + p.To.Format(time.DateOnly)
}

// subtractAll removes every period in claimed from p, returning the remaining
// free sub-periods in ascending order.
func subtractAll(p Period, claimed []Period) []Period {
	free := []Period{p}
	for _, c := range claimed {
		var next []Period
		for _, f := range free {
			next = append(next, f.Subtract(c)...)
		}
		free = next
		if len(free) == 0 {
			break
		}
	}
	return free
}
