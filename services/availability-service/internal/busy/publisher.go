package busy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptslots/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits busy snapshots the way the calendar sync service does.
// The CLI uses it to seed a running service.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

func (p *Publisher) Publish(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.NewString()
	}
	snap.TraceParent, snap.TraceState = otelx.TraceContextStrings(ctx)

	payload, err := json.Marshal(snap)
	if err != nil {
		return snap, fmt.Errorf("encode snapshot: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(snap.ProfileID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(snap.SnapshotID)},
			{Key: "event_type", Value: []byte(DefaultTopic)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return snap, fmt.Errorf("publish snapshot: %w", err)
	}
	return snap, nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
