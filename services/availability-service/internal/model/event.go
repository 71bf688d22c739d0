package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Moment is either a zoned instant or, for all-day events, a civil date.
// The zero Moment means the value was missing or could not be read.
type Moment struct {
	Time   time.Time
	Date   civil.Date
	AllDay bool
}

func At(t time.Time) Moment { return Moment{Time: t} }

func OnDate(d civil.Date) Moment { return Moment{Date: d, AllDay: true} }

func (m Moment) IsZero() bool {
	if m.AllDay {
		return !m.Date.IsValid()
	}
	return m.Time.IsZero()
}

func (m Moment) String() string {
	switch {
	case m.IsZero():
		return ""
	case m.AllDay:
		return m.Date.String()
	default:
		return m.Time.Format(time.RFC3339)
	}
}

// ParseMoment accepts RFC 3339 timestamps and YYYY-MM-DD dates. Anything
// else yields the zero Moment.
func ParseMoment(s string) Moment {
	s = strings.TrimSpace(s)
	if s == "" {
		return Moment{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return At(t)
	}
	if d, err := civil.ParseDate(s); err == nil {
		return OnDate(d)
	}
	return Moment{}
}

// providerMoment is the calendar-provider shape: {"dateTime": ..., "timeZone": ...}
// for timed events and {"date": ...} for all-day ones.
type providerMoment struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
}

// UnmarshalJSON never fails on malformed values; they decode to the zero
// Moment so the event is dropped later instead of failing the whole list.
func (m *Moment) UnmarshalJSON(b []byte) error {
	*m = Moment{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*m = ParseMoment(s)
		}
	case '{':
		var pm providerMoment
		if err := json.Unmarshal(b, &pm); err == nil {
			*m = pm.moment()
		}
	}
	return nil
}

func (pm providerMoment) moment() Moment {
	if pm.DateTime == "" {
		if d, err := civil.ParseDate(strings.TrimSpace(pm.Date)); err == nil {
			return OnDate(d)
		}
		return Moment{}
	}
	raw := strings.TrimSpace(pm.DateTime)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return At(t)
	}
	// Floating local time, interpreted in the event's own zone.
	loc := time.UTC
	if pm.TimeZone != "" {
		if l, err := time.LoadLocation(pm.TimeZone); err == nil {
			loc = l
		}
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, loc); err == nil {
		return At(t)
	}
	return Moment{}
}

func (m Moment) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

// BusyEvent is one busy interval from an external calendar. Attrs carries
// provider fields the engine passes through untouched.
type BusyEvent struct {
	ID    string            `json:"id,omitempty"`
	Start Moment            `json:"start"`
	End   Moment            `json:"end"`
	Attrs map[string]string `json:"attrs,omitempty"`
}
