package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/apptslots/libs/db"
)

// PostgresSource reads profiles with a single batched round trip.
type PostgresSource struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewPostgresSource(pool *db.Pool, logger *slog.Logger) *PostgresSource {
	return &PostgresSource{pool: pool, logger: logger}
}

type ruleRow struct {
	ID          int64
	DayOfWeek   int
	IsAvailable bool
	Start       pgtype.Time
	End         pgtype.Time
}

type overrideRow struct {
	ID    int64
	Date  civil.Date
	Type  string
	Start pgtype.Time
	End   pgtype.Time
}

type breakRow struct {
	ParentID int64
	Start    pgtype.Time
	End      pgtype.Time
}

type policyRow struct {
	Duration   int
	Buffer     int
	MinAdvance int
	MaxAdvance *int
}

func (s *PostgresSource) Load(ctx context.Context, profileID string, from, to civil.Date) (Profile, error) {
	fromT, toT := from.In(time.UTC), to.In(time.UTC)

	batch := &pgx.Batch{}
	batch.Queue(`SELECT timezone FROM profiles WHERE id = $1`, profileID)
	batch.Queue(`
		SELECT id, day_of_week, is_available, start_time, end_time
		FROM weekly_rules
		WHERE profile_id = $1
		ORDER BY day_of_week ASC
	`, profileID)
	batch.Queue(`
		SELECT b.rule_id, b.start_time, b.end_time
		FROM rule_breaks b
		JOIN weekly_rules r ON r.id = b.rule_id
		WHERE r.profile_id = $1
		ORDER BY b.start_time ASC
	`, profileID)
	batch.Queue(`
		SELECT id, date, override_type, start_time, end_time
		FROM overrides
		WHERE profile_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`, profileID, fromT, toT)
	batch.Queue(`
		SELECT b.override_id, b.start_time, b.end_time
		FROM override_breaks b
		JOIN overrides o ON o.id = b.override_id
		WHERE o.profile_id = $1 AND o.date BETWEEN $2 AND $3
		ORDER BY b.start_time ASC
	`, profileID, fromT, toT)
	batch.Queue(`
		SELECT duration_minutes, buffer_minutes, min_advance_hours, max_advance_booking_days
		FROM booking_policies
		WHERE profile_id = $1
	`, profileID)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var tz string
	if err := br.QueryRow().Scan(&tz); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	rules, err := collect(br, func(row pgx.Row) (ruleRow, error) {
		var r ruleRow
		err := row.Scan(&r.ID, &r.DayOfWeek, &r.IsAvailable, &r.Start, &r.End)
		return r, err
	})
	if err != nil {
		return Profile{}, fmt.Errorf("load weekly rules: %w", err)
	}
	ruleBreaks, err := collect(br, scanBreak)
	if err != nil {
		return Profile{}, fmt.Errorf("load rule breaks: %w", err)
	}
	overrides, err := collect(br, func(row pgx.Row) (overrideRow, error) {
		var o overrideRow
		var d pgtype.Date
		err := row.Scan(&o.ID, &d, &o.Type, &o.Start, &o.End)
		o.Date = civil.DateOf(d.Time)
		return o, err
	})
	if err != nil {
		return Profile{}, fmt.Errorf("load overrides: %w", err)
	}
	overrideBreaks, err := collect(br, scanBreak)
	if err != nil {
		return Profile{}, fmt.Errorf("load override breaks: %w", err)
	}

	var pol *policyRow
	var p policyRow
	switch err := br.QueryRow().Scan(&p.Duration, &p.Buffer, &p.MinAdvance, &p.MaxAdvance); {
	case err == nil:
		pol = &p
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return Profile{}, fmt.Errorf("load booking policy: %w", err)
	}

	prof, problems := assemble(profileID, tz, rules, ruleBreaks, overrides, overrideBreaks, pol)
	for _, problem := range problems {
		s.logger.Warn("ignoring invalid availability row", "profile_id", profileID, "err", problem)
	}
	return prof, nil
}

func scanBreak(row pgx.Row) (breakRow, error) {
	var b breakRow
	err := row.Scan(&b.ParentID, &b.Start, &b.End)
	return b, err
}

func collect[T any](br pgx.BatchResults, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
