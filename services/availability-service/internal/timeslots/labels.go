package timeslots

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

const LabelLayout = "3:04 PM"

var ErrInvalidLabel = errors.New("invalid time label")

// FormatLabel renders t on a 12-hour clock, e.g. "9:00 AM".
func FormatLabel(t time.Time) string { return t.Format(LabelLayout) }

// ParseLabel reads a label produced by FormatLabel back into a time of day.
// It is case-insensitive, tolerates a missing space before AM/PM and also
// accepts 24-hour "15:04".
func ParseLabel(s string) (civil.Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range []string{LabelLayout, "3:04PM", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.Time{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return civil.Time{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
}

// ParseClock reads "HH:MM" or "HH:MM:SS" configuration values.
func ParseClock(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("15:04", s); err == nil {
		return civil.Time{Hour: t.Hour(), Minute: t.Minute()}, nil
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return civil.Time{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return t, nil
}

var unitSuffixes = []struct {
	suffix string
	factor float64
}{
	{"minutes", 1}, {"minute", 1}, {"mins", 1}, {"min", 1}, {"m", 1},
	{"hours", 60}, {"hour", 60}, {"hrs", 60}, {"hr", 60}, {"h", 60},
}

// ParseDuration reads a meeting length in minutes from integers, floats,
// time.Duration or strings such as "30", "30min", "45 MINUTES" and "1h".
// Anything unusable yields the default of 30 minutes.
func ParseDuration(v any) int {
	var minutes float64
	switch x := v.(type) {
	case int:
		minutes = float64(x)
	case int32:
		minutes = float64(x)
	case int64:
		minutes = float64(x)
	case float64:
		minutes = x
	case time.Duration:
		minutes = x.Minutes()
	case string:
		minutes = parseDurationString(x)
	default:
		return model.DefaultDurationMinutes
	}
	if math.IsNaN(minutes) || minutes < 1 || minutes > 24*60 {
		return model.DefaultDurationMinutes
	}
	return int(math.Round(minutes))
}

func parseDurationString(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	factor := 1.0
	for _, u := range unitSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			factor = u.factor
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f * factor
}
