package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tendant/image-annotate/pkg/annotate/worker"
)

// ConsumerConfig options for a worker's event consumer.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	DLQTopic    string        // dead-letter topic; empty disables the DLQ
	GroupID     string        // one group per worker type
	MaxAttempts int           // in-process delivery attempts (default: 3)
	Backoff     time.Duration // base backoff between attempts (default: 1s)
}

// messageWriter is the slice of kafka.Writer the dead-letter path needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer drives one worker from the event topic. Offsets are committed
// only after the handler settles an event, so a crash mid-handling yields a
// redelivery; handlers are idempotent by contract.
type Consumer struct {
	reader  *kafka.Reader
	dlq     messageWriter
	handler worker.Handler
	cfg     ConsumerConfig
	logger  *slog.Logger
}

// NewConsumer creates a consumer bound to one worker handler.
func NewConsumer(cfg ConsumerConfig, handler worker.Handler, logger *slog.Logger) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
		handler: handler,
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:  kafka.TCP(cfg.Brokers...),
			Topic: cfg.DLQTopic,
		}
	}
	return c
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", "worker", c.handler.Name(), "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := c.process(ctx, msg); err != nil {
			// Leave the offset uncommitted: the broker redelivers the
			// message rather than dropping it without a DLQ trace.
			c.logger.Error("event not settled, leaving offset uncommitted",
				"worker", c.handler.Name(), "error", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("failed to commit offset", "worker", c.handler.Name(), "error", err)
		}
	}
}

// process settles one message: decode, hand to the worker with bounded
// retries, and dead-letter what still fails. Undecodable messages go
// straight to the DLQ; retrying cannot fix them. A nil return means the
// message is settled and its offset may be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	var evt worker.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Error("undecodable event", "worker", c.handler.Name(), "error", err)
		return c.deadLetter(ctx, msg)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.Backoff * time.Duration(attempt-1)):
			}
		}
		lastErr = c.handler.Handle(ctx, evt)
		if lastErr == nil {
			return nil
		}
		c.logger.Warn("event handling failed",
			"worker", c.handler.Name(), "key", evt.Key, "attempt", attempt, "error", lastErr)
	}

	c.logger.Error("event exhausted retries, dead-lettering",
		"worker", c.handler.Name(), "key", evt.Key, "error", lastErr)
	return c.deadLetter(ctx, msg)
}

// deadLetter records the unprocessable message on the DLQ topic. With no DLQ
// configured the message is discarded by choice once retries are exhausted.
func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message) error {
	if c.dlq == nil {
		return nil
	}
	err := c.dlq.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
	if err != nil {
		c.logger.Error("failed to dead-letter message", "worker", c.handler.Name(), "error", err)
		return fmt.Errorf("dead-letter message: %w", err)
	}
	return nil
}

func (c *Consumer) Close() error {
	if c.dlq != nil {
		c.dlq.Close()
	}
	return c.reader.Close()
}
