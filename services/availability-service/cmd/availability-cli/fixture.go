package main

import (
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
	"gopkg.in/yaml.v3"
)

const defaultProfileID = "00000000-0000-0000-0000-000000000001"

// fixture is the YAML description of one profile and its busy events.
type fixture struct {
	ProfileID string              `yaml:"profile_id"`
	Timezone  string              `yaml:"timezone"`
	Rules     []fixtureRule       `yaml:"rules"`
	Overrides []fixtureOverride   `yaml:"overrides"`
	Policy    model.BookingPolicy `yaml:"policy"`
	Events    []fixtureEvent      `yaml:"events"`
}

type fixtureRule struct {
	Day         string         `yaml:"day"`
	Start       string         `yaml:"start"`
	End         string         `yaml:"end"`
	Unavailable bool           `yaml:"unavailable"`
	Breaks      []fixtureRange `yaml:"breaks"`
}

type fixtureOverride struct {
	Date   string         `yaml:"date"`
	Type   string         `yaml:"type"`
	Start  string         `yaml:"start"`
	End    string         `yaml:"end"`
	Breaks []fixtureRange `yaml:"breaks"`
}

type fixtureRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type fixtureEvent struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

var dayNames = map[string]int{
	"monday": 1, "mon": 1, "tuesday": 2, "tue": 2, "wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4, "friday": 5, "fri": 5, "saturday": 6, "sat": 6, "sunday": 7, "sun": 7,
}

func loadFixture(path string) (fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fixture{}, err
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fixture{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.ProfileID == "" {
		f.ProfileID = defaultProfileID
	}
	return f, nil
}

// sources turns the fixture into in-memory profile and busy sources.
func (f fixture) sources() (profile.StaticSource, busy.StaticSource, error) {
	id, err := profile.ParseID(f.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	sched := model.Schedule{Timezone: f.Timezone}

	for _, r := range f.Rules {
		dow, ok := dayNames[strings.ToLower(strings.TrimSpace(r.Day))]
		if !ok {
			return nil, nil, fmt.Errorf("rule: unknown day %q", r.Day)
		}
		rule := model.WeeklyRule{DayOfWeek: dow, IsAvailable: !r.Unavailable}
		if rule.IsAvailable {
			if rule.Start, err = timeslots.ParseClock(r.Start); err != nil {
				return nil, nil, fmt.Errorf("rule %s: %w", r.Day, err)
			}
			if rule.End, err = timeslots.ParseClock(r.End); err != nil {
				return nil, nil, fmt.Errorf("rule %s: %w", r.Day, err)
			}
		}
		if rule.Breaks, err = parseBreaks(r.Breaks); err != nil {
			return nil, nil, fmt.Errorf("rule %s: %w", r.Day, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, nil, err
		}
		sched.Rules = append(sched.Rules, rule)
	}

	for _, o := range f.Overrides {
		date, err := civil.ParseDate(o.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("override: %w", err)
		}
		var start, end *civil.Time
		if o.Start != "" && o.End != "" {
			s, err := timeslots.ParseClock(o.Start)
			if err != nil {
				return nil, nil, fmt.Errorf("override %s: %w", o.Date, err)
			}
			e, err := timeslots.ParseClock(o.End)
			if err != nil {
				return nil, nil, fmt.Errorf("override %s: %w", o.Date, err)
			}
			start, end = &s, &e
		}
		ov, err := model.ParseOverride(date, o.Type, start, end)
		if err != nil {
			return nil, nil, err
		}
		if ov.Breaks, err = parseBreaks(o.Breaks); err != nil {
			return nil, nil, fmt.Errorf("override %s: %w", o.Date, err)
		}
		sched.Overrides = append(sched.Overrides, ov)
	}

	evs := make([]model.BusyEvent, 0, len(f.Events))
	for _, e := range f.Events {
		evs = append(evs, model.BusyEvent{ID: e.ID, Start: model.ParseMoment(e.Start), End: model.ParseMoment(e.End)})
	}

	profiles := profile.StaticSource{id: {ID: id, Schedule: sched, Policy: f.Policy.WithDefaults()}}
	return profiles, busy.StaticSource{id: evs}, nil
}

func parseBreaks(in []fixtureRange) ([]model.Break, error) {
	var out []model.Break
	for _, b := range in {
		s, err := timeslots.ParseClock(b.Start)
		if err != nil {
			return nil, err
		}
		e, err := timeslots.ParseClock(b.End)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Break{Start: s, End: e})
	}
	return out, nil
}
