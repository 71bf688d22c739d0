package timeslots

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

// Generate returns slot start times stepping by duration from windowStart
// while the slot still ends by windowEnd. Only slots lying entirely on date,
// as seen in windowStart's location, are kept.
func Generate(windowStart, windowEnd time.Time, duration time.Duration, date civil.Date) []time.Time {
	return GenerateWithBreaks(windowStart, windowEnd, duration, date, nil)
}

// GenerateWithBreaks is Generate minus any slot that overlaps a break.
func GenerateWithBreaks(windowStart, windowEnd time.Time, duration time.Duration, date civil.Date, breaks []model.Range) []time.Time {
	if duration <= 0 || !windowEnd.After(windowStart) {
		return nil
	}
	loc := windowStart.Location()
	day := model.Range{
		Start: businesshours.StartOfDay(date, loc),
		End:   businesshours.StartOfDay(date.AddDays(1), loc),
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(duration) {
		slot := model.Range{Start: t, End: t.Add(duration)}
		if slot.Start.Before(day.Start) || slot.End.After(day.End) {
			continue
		}
		if overlapsAny(slot, breaks) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

func overlapsAny(slot model.Range, busy []model.Range) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
