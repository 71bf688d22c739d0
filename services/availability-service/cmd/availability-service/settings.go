package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) >= 3 {
		if wd, ok := weekdays[s[:3]]; ok {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// engineConfig reads the calculator settings: DEFAULT_WINDOW_START/END,
// BUSINESS_DAYS, WEEK_START and PROBE_WORKERS.
func engineConfig() (availability.Config, error) {
	cfg := availability.DefaultConfig()

	start, err := timeslots.ParseClock(config.String("DEFAULT_WINDOW_START", "09:00"))
	if err != nil {
		return cfg, fmt.Errorf("DEFAULT_WINDOW_START: %w", err)
	}
	end, err := timeslots.ParseClock(config.String("DEFAULT_WINDOW_END", "17:00"))
	if err != nil {
		return cfg, fmt.Errorf("DEFAULT_WINDOW_END: %w", err)
	}
	window := businesshours.Window{Start: start, End: end}
	if !window.Valid() {
		return cfg, fmt.Errorf("default window %s-%s is empty", start, end)
	}
	cfg.Resolver.DefaultWindow = window

	var days []time.Weekday
	for _, raw := range config.List("BUSINESS_DAYS", []string{"mon", "tue", "wed", "thu", "fri"}) {
		wd, err := parseWeekday(raw)
		if err != nil {
			return cfg, fmt.Errorf("BUSINESS_DAYS: %w", err)
		}
		days = append(days, wd)
	}
	cfg.Resolver.BusinessDays = days

	if cfg.WeekStart, err = parseWeekday(config.String("WEEK_START", "monday")); err != nil {
		return cfg, fmt.Errorf("WEEK_START: %w", err)
	}
	if cfg.Workers, err = config.Int("PROBE_WORKERS", cfg.Workers); err != nil {
		return cfg, err
	}
	return cfg, nil
}
