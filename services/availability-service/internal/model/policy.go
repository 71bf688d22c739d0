package model

const DefaultDurationMinutes = 30

// BookingPolicy controls slot length, padding around busy events and how
// far ahead a visitor may book. A nil MaxAdvanceBookingDays means no limit.
type BookingPolicy struct {
	DurationMinutes       int  `json:"duration_minutes" yaml:"duration_minutes"`
	BufferMinutes         int  `json:"buffer_minutes" yaml:"buffer_minutes"`
	MinAdvanceHours       int  `json:"min_advance_hours" yaml:"min_advance_hours"`
	MaxAdvanceBookingDays *int `json:"max_advance_booking_days,omitempty" yaml:"max_advance_booking_days,omitempty"`
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{DurationMinutes: DefaultDurationMinutes}
}

// WithDefaults replaces out-of-range values with the documented defaults.
func (p BookingPolicy) WithDefaults() BookingPolicy {
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = DefaultDurationMinutes
	}
	if p.BufferMinutes < 0 {
		p.BufferMinutes = 0
	}
	if p.MinAdvanceHours < 0 {
		p.MinAdvanceHours = 0
	}
	if p.MaxAdvanceBookingDays != nil && *p.MaxAdvanceBookingDays < 0 {
		p.MaxAdvanceBookingDays = nil
	}
	return p
}
