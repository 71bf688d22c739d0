package busy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptslots/libs/otel"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTopic = "calendar.busy.synced.v1"

// Saver persists snapshots. *RedisStore implements it.
type Saver interface {
	Save(ctx context.Context, snap Snapshot) (SaveResult, error)
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer applies busy snapshots published by the calendar sync service.
// A message is committed once it is stored, found to be a replay or found
// to be unreadable; store failures are retried with backoff first.
type Consumer struct {
	reader  MessageReader
	store   Saver
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

func NewConsumer(logger *slog.Logger, store Saver, reader MessageReader) *Consumer {
	return &Consumer{reader: reader, store: store, logger: logger, retries: 5, backoff: 500 * time.Millisecond}
}

// NewKafkaConsumer wires a consumer-group reader for cfg.
func NewKafkaConsumer(logger *slog.Logger, store Saver, cfg kafkax.ReaderConfig) *Consumer {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return NewConsumer(logger, store, kafkax.NewReader(cfg))
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("busy snapshot dropped after retries", "err", err, "offset", msg.Offset, "partition", msg.Partition)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	var snap Snapshot
	decodeErr := json.Unmarshal(msg.Value, &snap)

	msgCtx := kafkax.ExtractTraceContext(ctx, msg)
	if !trace.SpanContextFromContext(msgCtx).IsValid() {
		msgCtx = otelx.ContextWithTraceContext(msgCtx, snap.TraceParent, snap.TraceState)
	}
	spanCtx, span := otel.Tracer("kafka").Start(msgCtx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if decodeErr != nil {
		c.logger.Warn("skipping unreadable busy snapshot", "err", decodeErr, "event_id", meta.EventID)
		span.RecordError(decodeErr)
		return nil
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = meta.EventID
	}
	id, err := profile.ParseID(snap.ProfileID)
	if err != nil {
		c.logger.Warn("skipping busy snapshot", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		return nil
	}
	snap.ProfileID = id
	span.SetAttributes(attribute.String("profile_id", id), attribute.Int("events", len(snap.Events)))

	delay := c.backoff
	for attempt := 1; ; attempt++ {
		res, err := c.store.Save(spanCtx, snap)
		if err == nil {
			c.logger.Info("busy snapshot processed",
				"profile_id", id,
				"snapshot_id", snap.SnapshotID,
				"events", len(snap.Events),
				"result", res.String(),
			)
			return nil
		}
		span.RecordError(err)
		if attempt >= c.retries {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("snapshot %s: %w", snap.SnapshotID, err)
		}
		c.logger.Warn("busy snapshot save failed, retrying", "err", err, "attempt", attempt, "profile_id", id)
		if !sleep(spanCtx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
