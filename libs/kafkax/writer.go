package kafkax

import "github.com/segmentio/kafka-go"

// NewWriter returns a writer that keys messages onto partitions by hash, so
// every message for one aggregate keeps its order.
func NewWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}
