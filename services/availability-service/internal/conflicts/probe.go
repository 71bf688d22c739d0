package conflicts

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

// PreFilterDays is how far either side of the probed date an event may lie
// and still matter. Evaluation reaches one day out; zone offsets span at
// most 26 hours, which the second day absorbs.
const PreFilterDays = 2

// PreFilter keeps the events whose buffer-padded span, read as civil dates
// in viewer, touches [date-2, date+2].
func PreFilter(busy []events.Interval, date civil.Date, viewer *time.Location, buffer time.Duration) []events.Interval {
	if viewer == nil {
		viewer = time.UTC
	}
	lo, hi := date.AddDays(-PreFilterDays), date.AddDays(PreFilterDays)
	out := make([]events.Interval, 0, len(busy))
	for _, b := range busy {
		first := civil.DateOf(b.Start.Add(-buffer).In(viewer))
		last := civil.DateOf(b.End.Add(buffer).In(viewer))
		if last.Before(lo) || first.After(hi) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Probe answers whether any slot of Duration fits in Windows, without
// enumerating slots. Busy intervals are padded by Buffer; breaks are not.
// Nothing before Cutoff is usable.
//
// Padding both sides of every event means a gap touching a window edge
// needs Duration+Buffer of raw free time and a gap between two events needs
// Duration+2*Buffer, while each padded gap only has to hold Duration.
type Probe struct {
	Windows  []model.Range
	Breaks   []model.Range
	Busy     []events.Interval
	Duration time.Duration
	Buffer   time.Duration
	Cutoff   time.Time
}

// HasFreeGap may report true when slot-start granularity leaves no actual
// slot, but never reports false when one exists.
func (p Probe) HasFreeGap() bool {
	if p.Duration <= 0 {
		return false
	}
	blocked := make([]model.Range, 0, len(p.Busy)+len(p.Breaks))
	for _, b := range p.Busy {
		blocked = append(blocked, model.Range{Start: b.Start.Add(-p.Buffer), End: b.End.Add(p.Buffer)})
	}
	blocked = append(blocked, p.Breaks...)
	slices.SortFunc(blocked, func(a, b model.Range) int { return a.Start.Compare(b.Start) })

	for _, w := range p.Windows {
		if w.Start.Before(p.Cutoff) {
			w.Start = p.Cutoff
		}
		if w.Duration() < p.Duration {
			continue
		}
		if gapWalk(w, blocked, p.Duration) {
			return true
		}
	}
	return false
}

// gapWalk moves a cursor through w over start-ordered blocked intervals and
// reports the first free stretch of at least need.
func gapWalk(w model.Range, blocked []model.Range, need time.Duration) bool {
	cursor := w.Start
	for _, b := range blocked {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(w.End) {
			break
		}
		if b.Start.Sub(cursor) >= need {
			return true
		}
		cursor = b.End
		if !cursor.Before(w.End) {
			return false
		}
	}
	return w.End.Sub(cursor) >= need
}
