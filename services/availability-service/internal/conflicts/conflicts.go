package conflicts

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
)

// Conflicts reports whether the slot [s, e) overlaps the event [es, ee)
// padded by buffer on both sides. Touching endpoints do not conflict.
func Conflicts(s, e, es, ee time.Time, buffer time.Duration) bool {
	return es.Add(-buffer).Before(e) && ee.Add(buffer).After(s)
}

func ConflictsAny(s, e time.Time, busy []events.Interval, buffer time.Duration) bool {
	for _, b := range busy {
		if Conflicts(s, e, b.Start, b.End, buffer) {
			return true
		}
	}
	return false
}

// Policy is model.BookingPolicy in time.Duration form.
type Policy struct {
	Duration       time.Duration
	Buffer         time.Duration
	MinAdvance     time.Duration
	MaxAdvanceDays *int
}

func PolicyFrom(p model.BookingPolicy) Policy {
	p = p.WithDefaults()
	return Policy{
		Duration:       time.Duration(p.DurationMinutes) * time.Minute,
		Buffer:         time.Duration(p.BufferMinutes) * time.Minute,
		MinAdvance:     time.Duration(p.MinAdvanceHours) * time.Hour,
		MaxAdvanceDays: p.MaxAdvanceBookingDays,
	}
}

// Cutoff is the earliest bookable slot start.
func (p Policy) Cutoff(now time.Time) time.Time { return now.Add(p.MinAdvance) }

// BeyondHorizon reports whether date lies past the advance-booking window
// counted from today.
func (p Policy) BeyondHorizon(date, today civil.Date) bool {
	return p.MaxAdvanceDays != nil && date.DaysSince(today) > *p.MaxAdvanceDays
}

// FilterSlots keeps the slot starts that are bookable under p: not
// conflicting with busy, not earlier than now+MinAdvance, and on a date
// inside the advance-booking window.
func FilterSlots(starts []time.Time, busy []events.Interval, date, today civil.Date, now time.Time, p Policy) []time.Time {
	if p.BeyondHorizon(date, today) {
		return nil
	}
	cutoff := p.Cutoff(now)
	var out []time.Time
	for _, s := range starts {
		if s.Before(cutoff) {
			continue
		}
		if ConflictsAny(s, s.Add(p.Duration), busy, p.Buffer) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FilterAvailableSlots is FilterSlots over display labels of date in loc.
// Labels that cannot be parsed are dropped.
func FilterAvailableSlots(labels []string, busy []events.Interval, loc *time.Location, date civil.Date, now time.Time, p Policy) []string {
	if loc == nil {
		loc = time.UTC
	}
	today := civil.DateOf(now.In(loc))
	var out []string
	for _, label := range labels {
		tod, err := timeslots.ParseLabel(label)
		if err != nil {
			continue
		}
		start := businesshours.SafeLocalTime(date, tod, loc)
		if len(FilterSlots([]time.Time{start}, busy, date, today, now, p)) == 1 {
			out = append(out, label)
		}
	}
	return out
}
