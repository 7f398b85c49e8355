// internal/queue/consumer.go
package queue

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler is the callback the consumer runs per message. Returning an error
// leaves the offset uncommitted, so Kafka redelivers the message; handlers
// must therefore be idempotent (ours are — every purchase mutation is a
// merge and the charge path is keyed).
type Handler func(ctx context.Context, key []byte, value []byte) error

// Consumer wraps a kafka reader in a commit-on-success loop.
type Consumer struct {
	reader *kafka.Reader

	handlerTimeout time.Duration
}

// NewConsumer connects to the purchase-events topic. The groupID lets
// multiple replicas split partitions instead of all processing everything.
func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		// The charge path holds a 30s processor timeout internally, so the
		// per-message budget sits above it.
		handlerTimeout: 45 * time.Second,
	}
}

// Start runs the consume loop until ctx is cancelled. Blocking.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	log.Printf("[Queue] Consumer started. Topic: %s, Group: %s", c.reader.Config().Topic, c.reader.Config().GroupID)

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Queue] fetch error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		processCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
		err = handler(processCtx, m.Key, m.Value)
		cancel()

		if err != nil {
			// Uncommitted: Kafka redelivers. Safe because handlers are
			// idempotent; the purchase id dedupes any money movement.
			log.Printf("[Queue] processing failed (offset %d): %v", m.Offset, err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("[Queue] failed to commit offset: %v", err)
		}
	}
}

// Close disconnects from the broker.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
