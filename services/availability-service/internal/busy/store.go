package busy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// Source supplies the merged busy events of a profile.
type Source interface {
	Events(ctx context.Context, profileID string) ([]model.BusyEvent, error)
}

// Snapshot is the full busy list of one profile as fetched by the calendar
// sync service. A newer snapshot replaces an older one entirely.
type Snapshot struct {
	SnapshotID string            `json:"snapshot_id"`
	ProfileID  string            `json:"profile_id"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Events     []model.BusyEvent `json:"events"`

	// Trace context for producers that cannot set message headers.
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

type SaveResult int

const (
	Applied SaveResult = iota
	Duplicate
	Stale
)

func (r SaveResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// RedisStore keeps the latest snapshot per profile. Keys share a hash tag
// per profile so the save script stays on one cluster slot.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func eventsKey(profileID string) string  { return "busy:{" + profileID + "}:events" }
func fetchedKey(profileID string) string { return "busy:{" + profileID + "}:fetched_at" }
func seenKey(profileID, snapshotID string) string {
	return "busy:{" + profileID + "}:seen:" + snapshotID
}

// saveScript returns -1 for an already processed snapshot id, 0 when a newer
// snapshot is stored and 1 when the snapshot was written.
var saveScript = redis.NewScript(`
if ARGV[4] == "1" then
  if not redis.call("SET", KEYS[3], "1", "NX", "PX", ARGV[3]) then
    return -1
  end
end
local cur = redis.call("GET", KEYS[2])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) (SaveResult, error) {
	if snap.ProfileID == "" {
		return 0, errors.New("snapshot without profile id")
	}
	if snap.Events == nil {
		snap.Events = []model.BusyEvent{}
	}
	payload, err := json.Marshal(snap.Events)
	if err != nil {
		return 0, fmt.Errorf("encode events: %w", err)
	}
	dedup := "0"
	if snap.SnapshotID != "" {
		dedup = "1"
	}
	keys := []string{eventsKey(snap.ProfileID), fetchedKey(snap.ProfileID), seenKey(snap.ProfileID, snap.SnapshotID)}
	n, err := saveScript.Run(ctx, s.rdb, keys,
		payload,
		strconv.FormatInt(snap.FetchedAt.UnixMilli(), 10),
		strconv.FormatInt(s.ttl.Milliseconds(), 10),
		dedup,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("save busy snapshot: %w", err)
	}
	switch n {
	case -1:
		return Duplicate, nil
	case 0:
		return Stale, nil
	}
	return Applied, nil
}

// Events returns the stored list, or none when nothing was synced yet.
func (s *RedisStore) Events(ctx context.Context, profileID string) ([]model.BusyEvent, error) {
	raw, err := s.rdb.Get(ctx, eventsKey(profileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load busy events: %w", err)
	}
	var evs []model.BusyEvent
	if err := json.Unmarshal(raw, &evs); err != nil {
		return nil, fmt.Errorf("decode busy events: %w", err)
	}
	return evs, nil
}

func (s *RedisStore) ReadyCheck() func(context.Context) error {
	return func(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }
}

// StaticSource serves fixed events, keyed by profile id.
type StaticSource map[string][]model.BusyEvent

func (s StaticSource) Events(_ context.Context, profileID string) ([]model.BusyEvent, error) {
	return s[profileID], nil
}
