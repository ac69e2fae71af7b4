// Package queue carries object-created events between the web front end and
// the workers over Kafka. Each worker type consumes the topic under its own
// group ID, which gives every stored object an independent at-least-once
// delivery to both workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/tendant/image-annotate/pkg/annotate/worker"
)

// Publisher writes object-created events to the event topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, bucket, key string) error {
	value, err := json.Marshal(worker.Event{Bucket: bucket, Key: key})
	if err != nil {
		return fmt.Errorf("encode event for %q: %w", key, err)
	}
	// Keyed by object key so redeliveries of the same object stay ordered
	// within a partition.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish event for %q: %w", key, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
