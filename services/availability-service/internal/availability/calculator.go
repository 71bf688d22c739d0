package availability

import (
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/businesshours"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidDuration = errors.New("duration must be between 1 and 1440 minutes")
	ErrInvalidMonth    = errors.New("invalid year or month")
)

const maxDurationMinutes = 24 * 60

type Config struct {
	Resolver  *businesshours.Resolver
	WeekStart time.Weekday
	// Workers bounds concurrent day probes in MonthAvailability.
	Workers int
}

func DefaultConfig() Config {
	return Config{Resolver: businesshours.NewResolver(), WeekStart: time.Monday, Workers: 4}
}

// Calculator answers availability questions for one profile snapshot at a
// time. It holds no per-request state and is safe for concurrent use.
type Calculator struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Calculator)

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

func New(cfg Config, opts ...Option) *Calculator {
	if cfg.Resolver == nil {
		cfg.Resolver = businesshours.NewResolver()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	c := &Calculator{
		cfg:    cfg,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("github.com/md-rashed-zaman/apptslots/availability"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query is everything needed to evaluate one profile. Duration, in minutes,
// overrides Policy.DurationMinutes when positive. An empty OrganizerTZ
// means Schedule.Timezone; an empty ViewerTZ means the organizer's zone.
type Query struct {
	Date        civil.Date
	Duration    int
	ViewerTZ    string
	OrganizerTZ string
	Schedule    model.Schedule
	Events      []model.BusyEvent
	Policy      model.BookingPolicy
}

type plan struct {
	viewer    *time.Location
	organizer *time.Location
	policy    conflicts.Policy
	now       time.Time
	today     civil.Date
}

func (c *Calculator) plan(q Query) (plan, error) {
	if q.Duration < 0 || q.Duration > maxDurationMinutes {
		return plan{}, ErrInvalidDuration
	}
	p := plan{policy: conflicts.PolicyFrom(q.Policy)}
	if q.Duration > 0 {
		p.policy.Duration = time.Duration(q.Duration) * time.Minute
	}

	orgName := q.OrganizerTZ
	if orgName == "" {
		orgName = q.Schedule.Timezone
	}
	p.organizer = c.location(orgName, "organizer")
	p.viewer = p.organizer
	if q.ViewerTZ != "" {
		p.viewer = c.location(q.ViewerTZ, "viewer")
	}

	p.now = c.now().In(p.viewer)
	p.today = civil.DateOf(p.now)
	return p, nil
}

func (c *Calculator) location(name, role string) *time.Location {
	loc, ok := businesshours.LoadLocation(name)
	if !ok {
		c.logger.Warn("unknown timezone, using UTC", "timezone", name, "role", role)
	}
	return loc
}

func (c *Calculator) normalize(evs []model.BusyEvent, p plan) []events.Interval {
	busy, st := events.NormalizeWithStats(evs, p.organizer, p.viewer)
	if st.Dropped > 0 {
		c.logger.Debug("dropped malformed busy events", "dropped", st.Dropped, "kept", st.Kept)
	}
	events.SortByStart(busy)
	return busy
}

// dayWindow is one organizer window that reaches into a viewer date.
type dayWindow struct {
	open    model.Range
	clipped model.Range
	breaks  []model.Range
}

// windows returns the organizer windows that overlap the viewer's date, in
// time order. Zone offsets differ by up to 26 hours, so the organizer dates
// two days either side can still reach into it.
func (c *Calculator) windows(date civil.Date, p plan, s model.Schedule) []dayWindow {
	day := model.Range{
		Start: businesshours.StartOfDay(date, p.viewer),
		End:   businesshours.StartOfDay(date.AddDays(1), p.viewer),
	}
	var out []dayWindow
	for od := date.AddDays(-2); !od.After(date.AddDays(2)); od = od.AddDays(1) {
		w, open := c.cfg.Resolver.ResolveWindow(od, s)
		if !open {
			continue
		}
		r, breaks := w.Instants(od, p.organizer)
		clipped := r.Clip(day)
		if clipped.Empty() {
			continue
		}
		dw := dayWindow{open: r, clipped: clipped}
		for _, b := range breaks {
			if b = b.Clip(r); !b.Empty() {
				dw.breaks = append(dw.breaks, b)
			}
		}
		out = append(out, dw)
	}
	return out
}
