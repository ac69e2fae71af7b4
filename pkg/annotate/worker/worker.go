// Package worker implements the two per-object processing workers.
//
// Each worker is a plain Handle(ctx, Event) function invoked by an
// at-least-once delivery mechanism. The pipeline is fixed: filter out
// non-source objects, fetch the source bytes, transform, then persist a
// terminal status. Persist is always attempted, even when fetch or transform
// failed, so a record never stays pending after a worker has run. Definitive
// transform failures end with a nil return (no redelivery); transient
// failures are returned to the caller so its retry and dead-letter handling
// engage.
package worker

import (
	"context"
	"io"

	"github.com/tendant/image-annotate/pkg/annotate"
)

// Event identifies one newly created object in blob storage. Delivery is
// at-least-once: the same event may arrive more than once, and handlers must
// be safe to re-run from scratch.
type Event struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Handler processes one object-created event.
type Handler interface {
	// Name identifies the worker in logs and consumer groups.
	Name() string

	// Handle processes the event. A nil return means the event is settled
	// (processed, skipped, or terminally failed with the failure persisted);
	// a non-nil return asks the delivery layer to redeliver.
	Handle(ctx context.Context, evt Event) error
}

// fetch downloads the source object, mapping any failure to
// ErrSourceUnavailable so callers treat it as transient.
func fetch(ctx context.Context, blobs annotate.BlobStore, key string) ([]byte, error) {
	rc, err := blobs.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &annotate.StorageError{Op: "read", Key: key, Err: annotate.ErrSourceUnavailable}
	}
	return data, nil
}
