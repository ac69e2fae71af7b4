package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/image-annotate/pkg/annotate/worker"
)

// InProcess fans events out to handlers inside the publishing process. It
// stands in for the broker in the development server and in tests, where it
// doubles as the harness for replaying duplicated or reordered events.
type InProcess struct {
	handlers []worker.Handler
	logger   *slog.Logger
	async    bool
	wg       sync.WaitGroup
}

// NewInProcess creates an in-process dispatcher that invokes each handler
// synchronously, in order. Synchronous dispatch keeps test assertions simple.
func NewInProcess(logger *slog.Logger, handlers ...worker.Handler) *InProcess {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcess{handlers: handlers, logger: logger}
}

// NewInProcessAsync creates an in-process dispatcher that invokes each
// handler on its own goroutine, closer to how independent platform workers
// behave. Used by the development server.
func NewInProcessAsync(logger *slog.Logger, handlers ...worker.Handler) *InProcess {
	d := NewInProcess(logger, handlers...)
	d.async = true
	return d
}

func (d *InProcess) Publish(ctx context.Context, bucket, key string) error {
	evt := worker.Event{Bucket: bucket, Key: key}
	for _, h := range d.handlers {
		if d.async {
			d.wg.Add(1)
			go func(h worker.Handler) {
				defer d.wg.Done()
				if err := h.Handle(context.WithoutCancel(ctx), evt); err != nil {
					d.logger.Error("in-process handler failed", "worker", h.Name(), "key", key, "error", err)
				}
			}(h)
			continue
		}
		if err := h.Handle(ctx, evt); err != nil {
			d.logger.Error("in-process handler failed", "worker", h.Name(), "key", key, "error", err)
		}
	}
	return nil
}

// Wait blocks until all asynchronously dispatched handlers have returned.
func (d *InProcess) Wait() {
	d.wg.Wait()
}
