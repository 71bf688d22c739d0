package events

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

// Interval is a busy event placed on the timeline. Event is the original,
// untouched input.
type Interval struct {
	Start time.Time
	End   time.Time
	Event model.BusyEvent
}

func (iv Interval) Range() model.Range { return model.Range{Start: iv.Start, End: iv.End} }

type Stats struct {
	Kept    int
	Dropped int
}

// Normalize places events in target. All-day events span local midnight to
// local midnight in reference, which is the organizer's zone, so that an
// all-day Monday blocks the organizer's Monday whatever zone the viewer is
// in. Malformed events are dropped.
func Normalize(evs []model.BusyEvent, reference, target *time.Location) []Interval {
	out, _ := NormalizeWithStats(evs, reference, target)
	return out
}

func NormalizeWithStats(evs []model.BusyEvent, reference, target *time.Location) ([]Interval, Stats) {
	if reference == nil {
		reference = time.UTC
	}
	if target == nil {
		target = time.UTC
	}
	out := make([]Interval, 0, len(evs))
	var st Stats
	for _, ev := range evs {
		iv, ok := place(ev, reference)
		if !ok {
			st.Dropped++
			continue
		}
		iv.Start = iv.Start.In(target)
		iv.End = iv.End.In(target)
		out = append(out, iv)
	}
	st.Kept = len(out)
	return out, st
}

func place(ev model.BusyEvent, reference *time.Location) (Interval, bool) {
	if ev.Start.IsZero() || ev.End.IsZero() || ev.Start.AllDay != ev.End.AllDay {
		return Interval{}, false
	}
	if ev.Start.AllDay {
		if ev.End.Date.DaysSince(ev.Start.Date) <= 0 {
			return Interval{}, false
		}
		return Interval{
			Start: businesshours.StartOfDay(ev.Start.Date, reference),
			End:   businesshours.StartOfDay(ev.End.Date, reference),
			Event: ev,
		}, true
	}
	if ev.End.Time.Before(ev.Start.Time) {
		return Interval{}, false
	}
	return Interval{Start: ev.Start.Time, End: ev.End.Time, Event: ev}, true
}

// SortByStart orders intervals by start, then end.
func SortByStart(ivs []Interval) {
	slices.SortFunc(ivs, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
}
