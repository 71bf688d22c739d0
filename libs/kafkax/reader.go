package kafkax

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ReaderConfig holds the consumer settings shared by every subscriber.
type ReaderConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

// NewReader returns a consumer-group reader that commits explicitly, so a
// message is only acknowledged after it has been handled.
func NewReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        SplitBrokers(cfg.Brokers),
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}
