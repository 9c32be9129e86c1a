// Package kafka subscribes to the transaction_completed topic published
// by the write-side ledger service.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/example/transaction-history/internal/feed"
	"github.com/example/transaction-history/internal/ledger"
)

// Consumer is a feed.Feed backed by a Kafka consumer group. Partition
// ordering is the broker's concern; the producer keys messages so one
// account's transactions land on one partition.
type Consumer struct {
	reader *kafka.Reader
	log    *slog.Logger

	out   chan ledger.Transaction
	alive atomic.Bool
}

// NewConsumer creates a consumer for the given brokers and topic.
func NewConsumer(brokers []string, topic, groupID string, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log: log,
		out: make(chan ledger.Transaction, feed.Buffer),
	}
}

func (c *Consumer) Transactions() <-chan ledger.Transaction { return c.out }

func (c *Consumer) Healthy() bool { return c.alive.Load() }

// Run reads messages until ctx is cancelled. Malformed messages are
// logged and skipped so the subscription keeps advancing; read errors
// are retried by the reader itself.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.out)
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warn("failed to close kafka reader", "error", err)
		}
	}()

	c.alive.Store(true)
	defer c.alive.Store(false)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.log.Warn("kafka read failed", "error", err)
			continue
		}

		var tx ledger.Transaction
		if err := json.Unmarshal(msg.Value, &tx); err != nil {
			c.log.Error("dropping malformed feed message",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}

		select {
		case c.out <- tx:
		case <-ctx.Done():
			return
		}
	}
}
