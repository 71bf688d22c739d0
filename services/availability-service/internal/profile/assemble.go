package profile

import (
	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

// assemble turns raw rows into a Profile. Invalid rows are left out and
// returned as problems.
func assemble(id, tz string, rules []ruleRow, ruleBreaks []breakRow, overrides []overrideRow, overrideBreaks []breakRow, pol *policyRow) (Profile, []error) {
	var problems []error
	prof := Profile{ID: id, Schedule: model.Schedule{Timezone: tz}, Policy: model.DefaultBookingPolicy()}

	breaksByRule := groupBreaks(ruleBreaks)
	for _, r := range rules {
		wr := model.WeeklyRule{
			DayOfWeek:   r.DayOfWeek,
			IsAvailable: r.IsAvailable,
			Start:       clockOf(r.Start),
			End:         clockOf(r.End),
			Breaks:      breaksByRule[r.ID],
		}
		if err := wr.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		prof.Schedule.Rules = append(prof.Schedule.Rules, wr)
	}

	breaksByOverride := groupBreaks(overrideBreaks)
	for _, o := range overrides {
		var start, end *civil.Time
		if o.Start.Valid && o.End.Valid {
			s, e := clockOf(o.Start), clockOf(o.End)
			start, end = &s, &e
		}
		ov, err := model.ParseOverride(o.Date, o.Type, start, end)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		ov.Breaks = breaksByOverride[o.ID]
		prof.Schedule.Overrides = append(prof.Schedule.Overrides, ov)
	}

	if pol != nil {
		prof.Policy = model.BookingPolicy{
			DurationMinutes:       pol.Duration,
			BufferMinutes:         pol.Buffer,
			MinAdvanceHours:       pol.MinAdvance,
			MaxAdvanceBookingDays: pol.MaxAdvance,
		}.WithDefaults()
	}
	return prof, problems
}

func groupBreaks(rows []breakRow) map[int64][]model.Break {
	out := make(map[int64][]model.Break, len(rows))
	for _, b := range rows {
		out[b.ParentID] = append(out[b.ParentID], model.Break{Start: clockOf(b.Start), End: clockOf(b.End)})
	}
	return out
}

// clockOf converts a Postgres time (microseconds since midnight). NULL is midnight.
func clockOf(t pgtype.Time) civil.Time {
	if !t.Valid {
		return civil.Time{}
	}
	us := t.Microseconds
	return civil.Time{
		Hour:       int(us / 3_600_000_000),
		Minute:     int(us / 60_000_000 % 60),
		Second:     int(us / 1_000_000 % 60),
		Nanosecond: int(us % 1_000_000 * 1000),
	}
}
