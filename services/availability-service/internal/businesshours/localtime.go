package businesshours

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// SafeLocalTime returns the instant at which the wall clock in loc shows
// date and t. Inside a spring-forward gap the result moves forward by the
// size of the gap. Inside a fall-back repeat the earlier occurrence wins.
// A nil loc means UTC.
func SafeLocalTime(date civil.Date, t civil.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	wall := time.Date(date.Year, date.Month, date.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)

	// Offsets in effect a day either side of the wall clock bracket any
	// single transition near it.
	_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
	_, after := wall.Add(24 * time.Hour).In(loc).Zone()

	early := wall.Add(-time.Duration(before) * time.Second)
	late := wall.Add(-time.Duration(after) * time.Second)
	earlyOK := showsWall(early, loc, wall)
	lateOK := showsWall(late, loc, wall)

	switch {
	case earlyOK && lateOK:
		if late.Before(early) {
			return late.In(loc)
		}
		return early.In(loc)
	case earlyOK:
		return early.In(loc)
	case lateOK:
		return late.In(loc)
	default:
		// Gap: the pre-transition offset lands past the jump by exactly its size.
		return early.In(loc)
	}
}

func showsWall(instant time.Time, loc *time.Location, wall time.Time) bool {
	l := instant.In(loc)
	y, m, d := l.Date()
	h, mi, s := l.Clock()
	return time.Date(y, m, d, h, mi, s, l.Nanosecond(), time.UTC).Equal(wall)
}

// StartOfDay is local midnight of date in loc.
func StartOfDay(date civil.Date, loc *time.Location) time.Time {
	return SafeLocalTime(date, civil.Time{}, loc)
}

// LoadLocation resolves an IANA zone name. An empty name is UTC; an unknown
// one falls back to UTC and reports false so the caller can log it.
func LoadLocation(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}
