package availability

import (
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
)

// Slot is a bookable interval in the viewer's zone.
type Slot struct {
	Start time.Time
	End   time.Time
}

func (s Slot) Label() string { return timeslots.FormatLabel(s.Start) }

func Labels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label()
	}
	return out
}

// AvailableSlots enumerates every bookable slot on q.Date as seen by the
// viewer. Slots step from the start of each organizer window and must lie
// entirely on the viewer's date.
func (c *Calculator) AvailableSlots(q Query) ([]Slot, error) {
	if !q.Date.IsValid() {
		return nil, ErrInvalidDate
	}
	p, err := c.plan(q)
	if err != nil {
		return nil, err
	}

	slots := []Slot{}
	if p.policy.BeyondHorizon(q.Date, p.today) {
		return slots, nil
	}
	windows := c.windows(q.Date, p, q.Schedule)
	if len(windows) == 0 {
		return slots, nil
	}

	busy := conflicts.PreFilter(c.normalize(q.Events, p), q.Date, p.viewer, p.policy.Buffer)
	for _, w := range windows {
		starts := timeslots.GenerateWithBreaks(w.open.Start.In(p.viewer), w.open.End.In(p.viewer), p.policy.Duration, q.Date, w.breaks)
		for _, s := range conflicts.FilterSlots(starts, busy, q.Date, p.today, p.now, p.policy) {
			slots = append(slots, Slot{Start: s, End: s.Add(p.policy.Duration)})
		}
	}
	return slots, nil
}
