package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-annotate/pkg/annotate/worker"
)

type fakeDLQ struct {
	messages []kafka.Message
	err      error
}

func (f *fakeDLQ) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeDLQ) Close() error { return nil }

func newTestConsumer(handler worker.Handler, dlq messageWriter) *Consumer {
	return &Consumer{
		dlq:     dlq,
		handler: handler,
		cfg:     ConsumerConfig{MaxAttempts: 2, Backoff: time.Millisecond},
		logger:  slog.Default(),
	}
}

func eventMessage(t *testing.T, key string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(worker.Event{Bucket: "uploads", Key: key})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(key), Value: value}
}

func TestProcessSettledEventCommits(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(&recordingHandler{name: "ok"}, dlq)

	err := c.process(context.Background(), eventMessage(t, "cat.png"))
	require.NoError(t, err)
	assert.Empty(t, dlq.messages)
}

func TestProcessExhaustedRetriesDeadLetters(t *testing.T) {
	dlq := &fakeDLQ{}
	h := &recordingHandler{name: "failing", err: errors.New("boom")}
	c := newTestConsumer(h, dlq)

	msg := eventMessage(t, "cat.png")
	err := c.process(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, h.seen(), 2)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, msg.Value, dlq.messages[0].Value)
}

func TestProcessDeadLetterFailureDefersCommit(t *testing.T) {
	dlq := &fakeDLQ{err: errors.New("broker unreachable")}
	c := newTestConsumer(&recordingHandler{name: "failing", err: errors.New("boom")}, dlq)

	// The event could be neither settled nor preserved on the DLQ; the
	// offset must stay uncommitted so the broker redelivers.
	err := c.process(context.Background(), eventMessage(t, "cat.png"))
	assert.Error(t, err)
}

func TestProcessUndecodableEventDeadLetters(t *testing.T) {
	dlq := &fakeDLQ{}
	h := &recordingHandler{name: "ok"}
	c := newTestConsumer(h, dlq)

	err := c.process(context.Background(), kafka.Message{Value: []byte("not json")})
	require.NoError(t, err)
	assert.Empty(t, h.seen())
	require.Len(t, dlq.messages, 1)
}

func TestProcessUndecodableEventDLQFailure(t *testing.T) {
	dlq := &fakeDLQ{err: errors.New("broker unreachable")}
	c := newTestConsumer(&recordingHandler{name: "ok"}, dlq)

	err := c.process(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestProcessNoDLQDiscardsAfterRetries(t *testing.T) {
	c := newTestConsumer(&recordingHandler{name: "failing", err: errors.New("boom")}, nil)

	err := c.process(context.Background(), eventMessage(t, "cat.png"))
	assert.NoError(t, err)
}
