package availability

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DateHasSlots reports whether AvailableSlots could return anything for
// q.Date without enumerating slots. It may be optimistic about slot-start
// alignment but never answers false when a slot exists.
func (c *Calculator) DateHasSlots(q Query) (bool, error) {
	if !q.Date.IsValid() {
		return false, ErrInvalidDate
	}
	p, err := c.plan(q)
	if err != nil {
		return false, err
	}
	return c.probe(q.Date, p, q.Schedule, c.normalize(q.Events, p)), nil
}

func (c *Calculator) probe(date civil.Date, p plan, s model.Schedule, busy []events.Interval) bool {
	if date.Before(p.today) || p.policy.BeyondHorizon(date, p.today) {
		return false
	}
	windows := c.windows(date, p, s)
	if len(windows) == 0 {
		return false
	}
	probe := conflicts.Probe{
		Busy:     conflicts.PreFilter(busy, date, p.viewer, p.policy.Buffer),
		Duration: p.policy.Duration,
		Buffer:   p.policy.Buffer,
		Cutoff:   p.policy.Cutoff(p.now),
	}
	for _, w := range windows {
		probe.Windows = append(probe.Windows, w.clipped)
		probe.Breaks = append(probe.Breaks, w.breaks...)
	}
	return probe.HasFreeGap()
}

// MonthAvailability maps every date of the month ("2006-01-02") to whether
// it has at least one slot. Past dates are false. q.Date is ignored.
func (c *Calculator) MonthAvailability(ctx context.Context, year int, month time.Month, q Query) (map[string]bool, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	p, err := c.plan(q)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "availability.MonthAvailability")
	defer span.End()

	first := civil.Date{Year: year, Month: month, Day: 1}
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	span.SetAttributes(
		attribute.Int("year", year),
		attribute.Int("month", int(month)),
		attribute.Int("events", len(q.Events)),
	)

	busy := c.normalize(q.Events, p)
	results := make([]bool, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i := range days {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.probe(first.AddDays(i), p, q.Schedule, busy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make(map[string]bool, days)
	open := 0
	for i, ok := range results {
		out[first.AddDays(i).String()] = ok
		if ok {
			open++
		}
	}
	span.SetAttributes(attribute.Int("available_days", open))
	return out, nil
}
