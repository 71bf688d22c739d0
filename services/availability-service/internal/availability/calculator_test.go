package availability

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) civil.Time { return civil.Time{Hour: h, Minute: m} }

func day(y int, m time.Month, d int) civil.Date { return civil.Date{Year: y, Month: m, Day: d} }

func fixedClock(t time.Time) Option { return WithClock(func() time.Time { return t }) }

func newCalc(now time.Time) *Calculator { return New(DefaultConfig(), fixedClock(now)) }

var longAgo = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func everyDay(start, end civil.Time) []model.WeeklyRule {
	rules := make([]model.WeeklyRule, 0, 7)
	for dow := 1; dow <= 7; dow++ {
		rules = append(rules, model.WeeklyRule{DayOfWeek: dow, IsAvailable: true, Start: start, End: end})
	}
	return rules
}

func TestAvailableSlots_OpenWindowNoEvents(t *testing.T) {
	q := Query{
		Date:     day(2025, 6, 16),
		Schedule: model.Schedule{Timezone: "UTC", Rules: []model.WeeklyRule{{DayOfWeek: 1, IsAvailable: true, Start: hm(11, 0), End: hm(19, 30)}}},
		Policy:   model.BookingPolicy{DurationMinutes: 30},
	}
	c := newCalc(longAgo)

	slots, err := c.AvailableSlots(q)
	require.NoError(t, err)
	require.Len(t, slots, 17)
	assert.Equal(t, "11:00 AM", slots[0].Label())
	assert.Equal(t, "7:00 PM", slots[16].Label())
	assert.True(t, slots[16].End.Equal(time.Date(2025, 6, 16, 19, 30, 0, 0, time.UTC)))

	ok, err := c.DateHasSlots(q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailableSlots_AllDayEventBlocksOnlyItsDay(t *testing.T) {
	q := Query{
		OrganizerTZ: "America/Chicago",
		ViewerTZ:    "America/Chicago",
		Schedule:    model.Schedule{Rules: everyDay(hm(9, 0), hm(17, 0))},
		Events: []model.BusyEvent{{
			Start: model.OnDate(day(2025, 6, 16)),
			End:   model.OnDate(day(2025, 6, 17)),
		}},
	}
	c := newCalc(longAgo)

	q.Date = day(2025, 6, 16)
	slots, err := c.AvailableSlots(q)
	require.NoError(t, err)
	assert.Empty(t, slots, "noon on the all-day date must be blocked")

	q.Date = day(2025, 6, 17)
	slots, err = c.AvailableSlots(q)
	require.NoError(t, err)
	assert.Len(t, slots, 16)
	assert.Contains(t, Labels(slots), "12:00 PM")
}

func TestAvailableSlots_SaturdayWithoutSchedule(t *testing.T) {
	c := newCalc(longAgo)
	sat := day(2025, 6, 21)

	slots, err := c.AvailableSlots(Query{Date: sat})
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)

	weekdays := model.Schedule{Rules: []model.WeeklyRule{
		{DayOfWeek: 1, IsAvailable: true, Start: hm(9, 0), End: hm(17, 0)},
		{DayOfWeek: 5, IsAvailable: true, Start: hm(9, 0), End: hm(17, 0)},
	}}
	slots, err = c.AvailableSlots(Query{Date: sat, Schedule: weekdays})
	require.NoError(t, err)
	assert.Empty(t, slots)

	ok, err := c.DateHasSlots(Query{Date: sat, Schedule: weekdays})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableSlots_DefaultWindowWithoutSchedule(t *testing.T) {
	slots, err := newCalc(longAgo).AvailableSlots(Query{Date: day(2025, 6, 16), Duration: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM", "10:00 AM", "11:00 AM", "12:00 PM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"}, Labels(slots))
}

func TestAvailableSlots_ViewerInAnotherZone(t *testing.T) {
	q := Query{
		OrganizerTZ: "America/New_York",
		ViewerTZ:    "Asia/Tokyo",
		Duration:    60,
		Schedule:    model.Schedule{Rules: []model.WeeklyRule{{DayOfWeek: 1, IsAvailable: true, Start: hm(9, 0), End: hm(17, 0)}}},
	}
	c := newCalc(longAgo)

	// Monday 09:00-17:00 EDT is Monday 22:00 to Tuesday 06:00 in Tokyo.
	q.Date = day(2025, 6, 16)
	slots, err := c.AvailableSlots(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 PM", "11:00 PM"}, Labels(slots))

	q.Date = day(2025, 6, 17)
	slots, err = c.AvailableSlots(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00 AM", "1:00 AM", "2:00 AM", "3:00 AM", "4:00 AM", "5:00 AM"}, Labels(slots))
	assert.Equal(t, "Asia/Tokyo", slots[0].Start.Location().String())
}

func TestAvailableSlots_SpringForward(t *testing.T) {
	q := Query{
		Date:        day(2025, 3, 9),
		OrganizerTZ: "America/New_York",
		Schedule:    model.Schedule{Rules: []model.WeeklyRule{{DayOfWeek: 7, IsAvailable: true, Start: hm(1, 0), End: hm(4, 0)}}},
	}
	slots, err := newCalc(longAgo).AvailableSlots(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"1:00 AM", "1:30 AM", "3:00 AM", "3:30 AM"}, Labels(slots))
}

func TestAvailableSlots_FallBack(t *testing.T) {
	q := Query{
		Date:        day(2025, 11, 2),
		OrganizerTZ: "America/New_York",
		Schedule:    model.Schedule{Rules: []model.WeeklyRule{{DayOfWeek: 7, IsAvailable: true, Start: hm(0, 0), End: hm(3, 0)}}},
	}
	slots, err := newCalc(longAgo).AvailableSlots(q)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"12:00 AM", "12:30 AM", "1:00 AM", "1:30 AM", "1:00 AM", "1:30 AM", "2:00 AM", "2:30 AM",
	}, Labels(slots))
}

func TestAvailableSlots_PolicyFilters(t *testing.T) {
	now := time.Date(2025, 6, 16, 10, 10, 0, 0, time.UTC)
	two := 2
	q := Query{
		Date:     day(2025, 6, 16),
		Schedule: model.Schedule{Rules: everyDay(hm(9, 0), hm(13, 0))},
		Policy:   model.BookingPolicy{DurationMinutes: 30, BufferMinutes: 15, MinAdvanceHours: 1, MaxAdvanceBookingDays: &two},
		Events: []model.BusyEvent{{
			Start: model.At(time.Date(2025, 6, 16, 12, 30, 0, 0, time.UTC)),
			End:   model.At(time.Date(2025, 6, 16, 13, 0, 0, 0, time.UTC)),
		}},
	}
	c := newCalc(now)

	slots, err := c.AvailableSlots(q)
	require.NoError(t, err)
	// Cutoff is 11:10 and the buffered event covers 12:15-13:15.
	assert.Equal(t, []string{"11:30 AM"}, Labels(slots))

	q.Date = day(2025, 6, 19)
	slots, err = c.AvailableSlots(q)
	require.NoError(t, err)
	assert.Empty(t, slots, "three days out is beyond the booking window")
}

func TestAvailableSlots_Breaks(t *testing.T) {
	q := Query{
		Date: day(2025, 6, 16),
		Schedule: model.Schedule{Rules: []model.WeeklyRule{{
			DayOfWeek: 1, IsAvailable: true, Start: hm(9, 0), End: hm(12, 0),
			Breaks: []model.Break{{Start: hm(10, 0), End: hm(11, 0)}},
		}}},
		Duration: 60,
	}
	slots, err := newCalc(longAgo).AvailableSlots(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM", "11:00 AM"}, Labels(slots))
}

func TestCallerMisuse(t *testing.T) {
	c := newCalc(longAgo)
	_, err := c.AvailableSlots(Query{Date: day(2025, 6, 16), Duration: -5})
	assert.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = c.AvailableSlots(Query{})
	assert.True(t, errors.Is(err, ErrInvalidDate))

	_, err = c.MonthAvailability(context.Background(), 2025, 13, Query{})
	assert.True(t, errors.Is(err, ErrInvalidMonth))

	_, err = c.CalendarDays("UTC", 2025, 0, model.BookingPolicy{})
	assert.True(t, errors.Is(err, ErrInvalidMonth))
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	q := Query{Date: day(2025, 6, 16), OrganizerTZ: "Nowhere/Special", ViewerTZ: "Also/Nowhere", Duration: 60}
	slots, err := newCalc(longAgo).AvailableSlots(q)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, time.UTC, slots[0].Start.Location())
	assert.Equal(t, 9, slots[0].Start.Hour())
}

func TestMonthAvailability(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	q := Query{
		Schedule: model.Schedule{
			Rules:     []model.WeeklyRule{{DayOfWeek: 1, IsAvailable: true, Start: hm(9, 0), End: hm(17, 0)}, {DayOfWeek: 3, IsAvailable: true, Start: hm(9, 0), End: hm(10, 0)}},
			Overrides: []model.Override{{Date: day(2025, 6, 23), Rule: model.Unavailable{}}},
		},
		Events: []model.BusyEvent{{
			Start: model.At(time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)),
			End:   model.At(time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)),
		}},
	}
	c := New(Config{Workers: 3}, fixedClock(now))

	got, err := c.MonthAvailability(context.Background(), 2025, time.June, q)
	require.NoError(t, err)
	require.Len(t, got, 30)

	assert.False(t, got["2025-06-09"], "past monday")
	assert.True(t, got["2025-06-11"])
	assert.True(t, got["2025-06-16"])
	assert.False(t, got["2025-06-18"], "only hour is busy")
	assert.False(t, got["2025-06-23"], "override closes the day")
	assert.True(t, got["2025-06-30"])
	assert.False(t, got["2025-06-14"], "saturday has no rule")

	for date, open := range got {
		d, err := civil.ParseDate(date)
		require.NoError(t, err)
		q.Date = d
		probe, err := c.DateHasSlots(q)
		require.NoError(t, err)
		assert.Equal(t, probe, open, date)
	}
}

func TestMonthAvailability_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCalc(longAgo).MonthAvailability(ctx, 2025, time.June, Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalendarDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	ten := 10
	c := newCalc(now)

	days, err := c.CalendarDays("UTC", 2025, time.June, model.BookingPolicy{MaxAdvanceBookingDays: &ten})
	require.NoError(t, err)
	require.Len(t, days, GridDays)

	// June 1st 2025 is a Sunday; the grid starts on Monday May 26th.
	assert.Equal(t, day(2025, 5, 26), days[0].Date)
	assert.False(t, days[0].CurrentMonth)
	assert.True(t, days[6].CurrentMonth)
	assert.Equal(t, day(2025, 7, 6), days[41].Date)

	byDate := map[civil.Date]CalendarDay{}
	for _, d := range days {
		byDate[d.Date] = d
	}
	assert.True(t, byDate[day(2025, 6, 9)].Past)
	assert.False(t, byDate[day(2025, 6, 9)].Available)
	assert.True(t, byDate[day(2025, 6, 10)].Today)
	assert.True(t, byDate[day(2025, 6, 10)].Available)
	assert.True(t, byDate[day(2025, 6, 20)].Available)
	assert.False(t, byDate[day(2025, 6, 21)].Available, "beyond the ten day window")
}

func TestCalendarDays_WeekStartSunday(t *testing.T) {
	c := New(Config{WeekStart: time.Sunday}, fixedClock(longAgo))
	days, err := c.CalendarDays("UTC", 2025, time.June, model.BookingPolicy{})
	require.NoError(t, err)
	assert.Equal(t, day(2025, 6, 1), days[0].Date)
	assert.Len(t, days, GridDays)
}

func TestCalendarDays_ViewerToday(t *testing.T) {
	// 2025-06-10 23:30 UTC is already June 11th in Tokyo.
	c := newCalc(time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC))
	days, err := c.CalendarDays("Asia/Tokyo", 2025, time.June, model.BookingPolicy{})
	require.NoError(t, err)
	for _, d := range days {
		if d.Today {
			assert.Equal(t, day(2025, 6, 11), d.Date)
		}
	}
}

func TestValidateTimeSelection(t *testing.T) {
	offered := []string{"9:00 AM", "9:30 AM", "2:00 PM"}
	cases := []struct {
		date, label string
		slots       []string
		want        error
	}{
		{"", "9:00 AM", offered, ErrDateRequired},
		{"2025-06-16", "  ", offered, ErrTimeRequired},
		{"16/06/2025", "9:00 AM", offered, ErrInvalidDate},
		{"2025-06-16", "nine", offered, ErrInvalidTime},
		{"2025-06-16", "10:00 AM", offered, ErrSlotUnavailable},
		{"2025-06-16", "9:00 AM", nil, ErrSlotUnavailable},
		{"2025-06-16", "2:00 pm", offered, nil},
		{"2025-06-16", "9:30 AM", offered, nil},
	}
	for _, tc := range cases {
		err := ValidateTimeSelection(tc.date, tc.label, tc.slots)
		if tc.want == nil {
			assert.NoError(t, err, "%s %s", tc.date, tc.label)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "%s %s", tc.date, tc.label)
	}
}
