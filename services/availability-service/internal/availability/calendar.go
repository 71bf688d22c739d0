package availability

import (
	"errors"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
)

// GridDays is the size of a month grid: six full weeks.
const GridDays = 42

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Date         civil.Date `json:"date"`
	Available    bool       `json:"available"`
	Past         bool       `json:"past"`
	Today        bool       `json:"today"`
	CurrentMonth bool       `json:"current_month"`
}

// CalendarDays lays out month as six weeks starting on the configured week
// start on or before the 1st. Available only reflects the calendar and the
// advance-booking window; use MonthAvailability for busy times.
func (c *Calculator) CalendarDays(viewerTZ string, year int, month time.Month, policy model.BookingPolicy) ([]CalendarDay, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	viewer := c.location(viewerTZ, "viewer")
	today := civil.DateOf(c.now().In(viewer))
	p := conflicts.PolicyFrom(policy)

	first := civil.Date{Year: year, Month: month, Day: 1}
	lead := (int(businesshours.Weekday(first)) - int(c.cfg.WeekStart) + 7) % 7
	start := first.AddDays(-lead)

	out := make([]CalendarDay, GridDays)
	for i := range out {
		d := start.AddDays(i)
		past := d.Before(today)
		out[i] = CalendarDay{
			Date:         d,
			Past:         past,
			Today:        d == today,
			CurrentMonth: d.Year == year && d.Month == month,
			Available:    !past && !p.BeyondHorizon(d, today),
		}
	}
	return out, nil
}

var (
	ErrDateRequired    = errors.New("date is required")
	ErrTimeRequired    = errors.New("time is required")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("time must look like 9:30 AM")
	ErrSlotUnavailable = errors.New("selected time is not available")
)

// ValidateTimeSelection checks a visitor's pick against the slot labels
// offered for that date.
func ValidateTimeSelection(date, label string, slots []string) error {
	date, label = strings.TrimSpace(date), strings.TrimSpace(label)
	switch {
	case date == "":
		return ErrDateRequired
	case label == "":
		return ErrTimeRequired
	}
	if _, err := civil.ParseDate(date); err != nil {
		return ErrInvalidDate
	}
	picked, err := timeslots.ParseLabel(label)
	if err != nil {
		return ErrInvalidTime
	}
	if !slices.ContainsFunc(slots, func(s string) bool {
		t, err := timeslots.ParseLabel(s)
		return err == nil && t == picked
	}) {
		return ErrSlotUnavailable
	}
	return nil
}
