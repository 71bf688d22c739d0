// Package service loads a profile and its busy events and runs the
// availability calculator over them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
)

// ErrBusyUnavailable means busy events could not be read. No slots are
// computed without them.
var ErrBusyUnavailable = errors.New("busy events unavailable")

type Service struct {
	profiles profile.Source
	busy     busy.Source
	calc     *availability.Calculator
	logger   *slog.Logger
}

func New(profiles profile.Source, busySource busy.Source, calc *availability.Calculator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{profiles: profiles, busy: busySource, calc: calc, logger: logger}
}

type SlotsRequest struct {
	ProfileID string
	Date      string
	ViewerTZ  string
	Duration  int
}

type MonthRequest struct {
	ProfileID string
	Year      int
	Month     time.Month
	ViewerTZ  string
	Duration  int
}

type ValidateRequest struct {
	ProfileID string
	Date      string
	Time      string
	ViewerTZ  string
	Duration  int
}

func (s *Service) Slots(ctx context.Context, req SlotsRequest) ([]availability.Slot, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	q, err := s.query(ctx, req.ProfileID, date.AddDays(-conflicts.PreFilterDays), date.AddDays(conflicts.PreFilterDays), req.ViewerTZ, req.Duration)
	if err != nil {
		return nil, err
	}
	q.Date = date
	return s.calc.AvailableSlots(q)
}

func (s *Service) Month(ctx context.Context, req MonthRequest) (map[string]bool, error) {
	if req.Year < 1 || req.Year > 9999 || req.Month < time.January || req.Month > time.December {
		return nil, availability.ErrInvalidMonth
	}
	first := civil.Date{Year: req.Year, Month: req.Month, Day: 1}
	last := civil.DateOf(time.Date(req.Year, req.Month+1, 0, 0, 0, 0, 0, time.UTC))
	q, err := s.query(ctx, req.ProfileID, first.AddDays(-conflicts.PreFilterDays), last.AddDays(conflicts.PreFilterDays), req.ViewerTZ, req.Duration)
	if err != nil {
		return nil, err
	}
	return s.calc.MonthAvailability(ctx, req.Year, req.Month, q)
}

// Calendar returns the month grid. Busy events are not consulted.
func (s *Service) Calendar(ctx context.Context, profileID string, year int, month time.Month, viewerTZ string) ([]availability.CalendarDay, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return nil, availability.ErrInvalidMonth
	}
	id, err := profile.ParseID(profileID)
	if err != nil {
		return nil, err
	}
	first := civil.Date{Year: year, Month: month, Day: 1}
	p, err := s.profiles.Load(ctx, id, first, first)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if viewerTZ == "" {
		viewerTZ = p.Schedule.Timezone
	}
	return s.calc.CalendarDays(viewerTZ, year, month, p.Policy)
}

// Validate checks that the visitor's pick is one of the slots currently on
// offer for that date.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) error {
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		return availability.ValidateTimeSelection(req.Date, req.Time, nil)
	}
	slots, err := s.Slots(ctx, SlotsRequest{ProfileID: req.ProfileID, Date: req.Date, ViewerTZ: req.ViewerTZ, Duration: req.Duration})
	if err != nil {
		return err
	}
	return availability.ValidateTimeSelection(req.Date, req.Time, availability.Labels(slots))
}

func (s *Service) query(ctx context.Context, rawID string, from, to civil.Date, viewerTZ string, duration int) (availability.Query, error) {
	id, err := profile.ParseID(rawID)
	if err != nil {
		return availability.Query{}, err
	}
	p, err := s.profiles.Load(ctx, id, from, to)
	if err != nil {
		return availability.Query{}, fmt.Errorf("load profile: %w", err)
	}
	evs, err := s.busy.Events(ctx, id)
	if err != nil {
		s.logger.Error("busy events load failed", "err", err, "profile_id", id)
		return availability.Query{}, fmt.Errorf("%w: %v", ErrBusyUnavailable, err)
	}
	return availability.Query{
		Duration: duration,
		ViewerTZ: viewerTZ,
		Schedule: p.Schedule,
		Events:   evs,
		Policy:   p.Policy,
	}, nil
}

func parseDate(raw string) (civil.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return civil.Date{}, availability.ErrDateRequired
	}
	d, err := civil.ParseDate(raw)
	if err != nil || !d.IsValid() {
		return civil.Date{}, availability.ErrInvalidDate
	}
	return d, nil
}
