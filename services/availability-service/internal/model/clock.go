package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// ClockSince returns the duration between two times of day, a - b.
func ClockSince(a, b civil.Time) time.Duration {
	return clockOffset(a) - clockOffset(b)
}

func ClockBefore(a, b civil.Time) bool { return ClockSince(a, b) < 0 }

func clockOffset(t civil.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}

// Range is a half-open instant interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Empty() bool { return !r.End.After(r.Start) }

func (r Range) Duration() time.Duration { return r.End.Sub(r.Start) }

// Overlaps reports whether the half-open ranges share any instant.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Clip returns r limited to bounds. The result may be empty.
func (r Range) Clip(bounds Range) Range {
	if r.Start.Before(bounds.Start) {
		r.Start = bounds.Start
	}
	if r.End.After(bounds.End) {
		r.End = bounds.End
	}
	return r
}
