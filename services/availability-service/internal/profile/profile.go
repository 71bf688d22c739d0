package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
)

var (
	ErrNotFound  = errors.New("profile not found")
	ErrInvalidID = errors.New("profile id must be a uuid")
)

// Profile is the availability configuration of one bookable organizer.
type Profile struct {
	ID       string
	Schedule model.Schedule
	Policy   model.BookingPolicy
}

// Source loads a profile with the overrides dated within [from, to].
type Source interface {
	Load(ctx context.Context, profileID string, from, to civil.Date) (Profile, error)
}

// ParseID normalizes a profile id to canonical uuid form.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id.String(), nil
}

// StaticSource serves profiles from memory. It backs the CLI and tests.
type StaticSource map[string]Profile

func (s StaticSource) Load(_ context.Context, profileID string, from, to civil.Date) (Profile, error) {
	p, ok := s[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	var overrides []model.Override
	for _, o := range p.Schedule.Overrides {
		if o.Date.Before(from) || o.Date.After(to) {
			continue
		}
		overrides = append(overrides, o)
	}
	p.Schedule.Overrides = overrides
	return p, nil
}
