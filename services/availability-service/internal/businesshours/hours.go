package businesshours

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

// Window is the open time-of-day range of one date, in the organizer's zone.
type Window struct {
	Start  civil.Time
	End    civil.Time
	Breaks []model.Break
}

func (w Window) Valid() bool {
	return w.Start.IsValid() && w.End.IsValid() && model.ClockBefore(w.Start, w.End)
}

// Instants places the window and its valid breaks on date in loc.
func (w Window) Instants(date civil.Date, loc *time.Location) (model.Range, []model.Range) {
	open := model.Range{
		Start: SafeLocalTime(date, w.Start, loc),
		End:   SafeLocalTime(date, w.End, loc),
	}
	var breaks []model.Range
	for _, b := range w.Breaks {
		if !b.Valid() {
			continue
		}
		breaks = append(breaks, model.Range{
			Start: SafeLocalTime(date, b.Start, loc),
			End:   SafeLocalTime(date, b.End, loc),
		})
	}
	return open, breaks
}

// Resolver decides the open window of a date. The default window and
// business days apply only to profiles without any weekly rule.
type Resolver struct {
	DefaultWindow Window
	BusinessDays  []time.Weekday
}

var defaultBusinessDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func NewResolver() *Resolver {
	return &Resolver{
		DefaultWindow: Window{Start: civil.Time{Hour: 9}, End: civil.Time{Hour: 17}},
		BusinessDays:  slices.Clone(defaultBusinessDays),
	}
}

func (r *Resolver) defaultWindow() Window {
	if r == nil || !r.DefaultWindow.Valid() {
		return Window{Start: civil.Time{Hour: 9}, End: civil.Time{Hour: 17}}
	}
	return Window{Start: r.DefaultWindow.Start, End: r.DefaultWindow.End}
}

func (r *Resolver) IsBusinessDay(date civil.Date) bool {
	days := defaultBusinessDays
	if r != nil && len(r.BusinessDays) > 0 {
		days = r.BusinessDays
	}
	return slices.Contains(days, Weekday(date))
}

// ResolveWindow returns the open window of date, or false when the date is
// closed. An override wins over the weekly rule; a profile without weekly
// rules gets the default window on business days.
func (r *Resolver) ResolveWindow(date civil.Date, s model.Schedule) (Window, bool) {
	rule, hasRule := s.RuleFor(Weekday(date))

	var w Window
	if o, ok := s.OverrideFor(date); ok {
		switch ov := o.Rule.(type) {
		case model.Unavailable:
			return Window{}, false
		case model.CustomHours:
			w = Window{Start: ov.Start, End: ov.End}
		case model.Available:
			w = r.defaultWindow()
			if hasRule && rule.IsAvailable {
				w.Start, w.End = rule.Start, rule.End
			}
		}
		if hasRule && rule.IsAvailable {
			w.Breaks = rule.Breaks
		}
		if len(o.Breaks) > 0 {
			w.Breaks = o.Breaks
		}
		return w, w.Valid()
	}

	switch {
	case hasRule:
		if !rule.IsAvailable {
			return Window{}, false
		}
		w = Window{Start: rule.Start, End: rule.End, Breaks: rule.Breaks}
	case len(s.Rules) == 0 && r.IsBusinessDay(date):
		w = r.defaultWindow()
	default:
		return Window{}, false
	}
	return w, w.Valid()
}

// Weekday of a civil date, independent of any zone.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
