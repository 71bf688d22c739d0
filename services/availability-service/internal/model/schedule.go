package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrInvalidRule         = errors.New("invalid weekly rule")
	ErrInvalidOverride     = errors.New("invalid override")
	ErrUnknownOverrideType = errors.New("unknown override type")
)

// Break is a time-of-day range inside a working window during which no
// slot may be booked.
type Break struct {
	Start civil.Time `json:"start_time"`
	End   civil.Time `json:"end_time"`
}

func (b Break) Valid() bool {
	return b.Start.IsValid() && b.End.IsValid() && ClockBefore(b.Start, b.End)
}

// WeeklyRule is the recurring availability for one ISO weekday
// (1=Monday..7=Sunday), in the profile's timezone.
type WeeklyRule struct {
	DayOfWeek   int        `json:"day_of_week"`
	IsAvailable bool       `json:"is_available"`
	Start       civil.Time `json:"start_time"`
	End         civil.Time `json:"end_time"`
	Breaks      []Break    `json:"breaks,omitempty"`
}

func (r WeeklyRule) Validate() error {
	if r.DayOfWeek < 1 || r.DayOfWeek > 7 {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidRule, r.DayOfWeek)
	}
	if r.IsAvailable && !ClockBefore(r.Start, r.End) {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRule, r.Start, r.End)
	}
	return nil
}

// ISOWeekday maps time.Weekday onto 1=Monday..7=Sunday.
func ISOWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// OverrideRule is one of Unavailable, Available or CustomHours.
type OverrideRule interface {
	overrideRule()
	Kind() string
}

// Unavailable closes the whole day.
type Unavailable struct{}

// Available opens the day with the weekly hours, or the default window when
// the weekday has none.
type Available struct{}

// CustomHours replaces the day's hours. Build it with NewCustomHours.
type CustomHours struct {
	Start civil.Time
	End   civil.Time
}

func (Unavailable) overrideRule() {}
func (Available) overrideRule()   {}
func (CustomHours) overrideRule() {}

func (Unavailable) Kind() string { return "unavailable" }
func (Available) Kind() string   { return "available" }
func (CustomHours) Kind() string { return "custom_hours" }

func NewCustomHours(start, end civil.Time) (CustomHours, error) {
	if !start.IsValid() || !end.IsValid() || !ClockBefore(start, end) {
		return CustomHours{}, fmt.Errorf("%w: custom hours %s-%s", ErrInvalidOverride, start, end)
	}
	return CustomHours{Start: start, End: end}, nil
}

// Override replaces the weekly rule for a single date. Breaks, when present,
// replace the weekly rule's breaks for that date.
type Override struct {
	Date   civil.Date
	Rule   OverrideRule
	Breaks []Break
}

// ParseOverride builds an override from its stored form. start and end are
// required for custom_hours and ignored otherwise.
func ParseOverride(date civil.Date, kind string, start, end *civil.Time) (Override, error) {
	if !date.IsValid() {
		return Override{}, fmt.Errorf("%w: date %s", ErrInvalidOverride, date)
	}
	o := Override{Date: date}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "unavailable":
		o.Rule = Unavailable{}
	case "available":
		o.Rule = Available{}
	case "custom_hours":
		if start == nil || end == nil {
			return Override{}, fmt.Errorf("%w: custom_hours on %s requires start and end", ErrInvalidOverride, date)
		}
		ch, err := NewCustomHours(*start, *end)
		if err != nil {
			return Override{}, err
		}
		o.Rule = ch
	default:
		return Override{}, fmt.Errorf("%w: %q", ErrUnknownOverrideType, kind)
	}
	return o, nil
}

// Schedule is an immutable snapshot of a profile's availability configuration.
type Schedule struct {
	Timezone  string
	Rules     []WeeklyRule
	Overrides []Override
}

func (s Schedule) RuleFor(wd time.Weekday) (WeeklyRule, bool) {
	iso := ISOWeekday(wd)
	for _, r := range s.Rules {
		if r.DayOfWeek == iso {
			return r, true
		}
	}
	return WeeklyRule{}, false
}

func (s Schedule) OverrideFor(d civil.Date) (Override, bool) {
	for _, o := range s.Overrides {
		if o.Date == d && o.Rule != nil {
			return o, true
		}
	}
	return Override{}, false
}
