package domain

import (
	"sort"
	"time"
)

// TimelineEntry is one settled stretch of the payment schedule: a period, the
// amount payable through it, and the id of the instruction that put it there.
type TimelineEntry struct {
	Period Period
	Amount int64
	LineID string
}

// Timeline is the authoritative effective payment schedule derived from a
// chain's lines: sorted ascending, gap-tolerant, never overlapping.
type Timeline struct {
	entries []TimelineEntry
}

// BuildTimeline folds a chain's lines into the effective schedule.
//
// Recency drives precedence, not period order: a later instruction always wins
// over an earlier one for any period it touches. The fold walks lines most
// recent first, each line keeping only the sub-periods no newer line has
// claimed. New and Change lines contribute their own amount; a Reactivation
// recovers the amounts of the historical New lines it re-opens, reconstructing
// what would have been paid had the intervening stop never happened.
//
// The non-overlap of the result is a hard postcondition; violation means the
// stored history is corrupt and construction fails.
func BuildTimeline(lines []PaymentLine) (Timeline, error) {
	if len(lines) == 0 {
		return Timeline{}, &ValidationError{Field: "lines", Message: "cannot build timeline from zero lines"}
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return Timeline{}, err
		}
	}

	sorted := make([]PaymentLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var (
		claimed []Period
		entries []TimelineEntry
	)
	for i, line := range sorted {
		free := subtractAll(line.Period, claimed)
		for _, f := range free {
			switch line.Kind {
			case LineReactivation:
				recovered, err := recoverHistorical(f, line, sorted[i+1:])
				if err != nil {
					return Timeline{}, err
				}
				entries = append(entries, recovered...)
			default:
				entries = append(entries, TimelineEntry{Period: f, Amount: line.Amount, LineID: line.ID})
			}
			claimed = append(claimed, f)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Period.From.Before(entries[j].Period.From)
	})
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].Period.EndsBefore(entries[i].Period) {
			return Timeline{}, inconsistencyf("entries %s and %s overlap", entries[i-1].Period, entries[i].Period)
		}
	}
	return Timeline{entries: entries}, nil
}

// recoverHistorical reconstructs the amounts a reactivation re-opens, by
// walking the older New lines most recent first and taking their amount on
// every intersection with the still-uncovered remainder. The remainder must
// end up empty: a reactivation that history cannot fully cover is a defect.
func recoverHistorical(free Period, reak PaymentLine, older []PaymentLine) ([]TimelineEntry, error) {
	remaining := []Period{free}
	var out []TimelineEntry
	for _, h := range older {
		if h.Kind != LineNew {
			continue
		}
		var next []Period
		for _, r := range remaining {
			hit, ok := r.Intersect(h.Period)
			if !ok {
				next = append(next, r)
				continue
			}
			out = append(out, TimelineEntry{Period: hit, Amount: h.Amount, LineID: reak.ID})
			next = append(next, r.Subtract(hit)...)
		}
		remaining = next
		if len(remaining) == 0 {
			break
		}
	}
	if len(remaining) > 0 {
		return nil, inconsistencyf("reactivation %s covers %s but history has no amount for %s", reak.ID, reak.Period, remaining[0])
	}
	return out, nil
}

// Entries returns the schedule in ascending order.
func (t Timeline) Entries() []TimelineEntry {
	out := make([]TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// IsEmpty reports whether the timeline holds no entries at all.
func (t Timeline) IsEmpty() bool {
	return len(t.entries) == 0
}

// AmountOn returns the amount effective on the given date, or false if the
// date falls in a gap.
func (t Timeline) AmountOn(day time.Time) (int64, bool) {
	d := dateOnly(day)
	i := sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Period.To.Before(d)
	})
	if i < len(t.entries) && t.entries[i].Period.Contains(d) {
		return t.entries[i].Amount, true
	}
	return 0, false
}

// Shrink restricts the timeline to the given window. The second return is
// false when the window falls entirely in a gap.
func (t Timeline) Shrink(window Period) (Timeline, bool) {
	var out []TimelineEntry
	for _, e := range t.entries {
		if hit, ok := e.Period.Intersect(window); ok {
			out = append(out, TimelineEntry{Period: hit, Amount: e.Amount, LineID: e.LineID})
		}
	}
	if len(out) == 0 {
		return Timeline{}, false
	}
	return Timeline{entries: out}, true
}

// EquivalentWithin reports whether both timelines pay the same amount on every
// date inside the window, gaps included. Which instruction produced an entry
// is irrelevant; used to detect whether a recomputation changed anything.
func (t Timeline) EquivalentWithin(other Timeline, window Period) bool {
	a, aok := t.Shrink(window)
	b, bok := other.Shrink(window)
	if !aok || !bok {
		return aok == bok
	}
	ac := coalesce(a.entries)
	bc := coalesce(b.entries)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !ac[i].Period.Equal(bc[i].Period) || ac[i].Amount != bc[i].Amount {
			return false
		}
	}
	return true
}

// coalesce merges adjacent entries that abut and carry the same amount, so
// that equivalence does not depend on how history happened to split periods.
func coalesce(entries []TimelineEntry) []TimelineEntry {
	var out []TimelineEntry
	for _, e := range entries {
		n := len(out)
		if n > 0 && out[n-1].Amount == e.Amount && out[n-1].Period.To.AddDate(0, 0, 1).Equal(e.Period.From) {
			out[n-1].Period.To = e.Period.To
			continue
		}
		out = append(out, e)
	}
	return out
}
