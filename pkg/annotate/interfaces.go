package annotate

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// RecordStore is the persistence abstraction for records. Implementations
// must keep the two field-group updaters independent: UpdateAnnotation never
// touches thumbnail columns and UpdateThumbnail never touches annotation
// columns. Each operation is its own transaction.
type RecordStore interface {
	// CreatePending inserts a record with both statuses pending. It returns
	// ErrDuplicateKey (via errors.Is) when the key already exists so callers
	// can treat an idempotent retry as a no-op.
	CreatePending(ctx context.Context, key, displayName string) (uuid.UUID, error)

	// UpdateAnnotation sets the annotation field-group for the record with
	// the given key. status must be terminal. Returns false when no record
	// matched; a miss never creates a row.
	UpdateAnnotation(ctx context.Context, key string, text *string, status Status) (bool, error)

	// UpdateThumbnail sets the thumbnail field-group, symmetric to
	// UpdateAnnotation.
	UpdateThumbnail(ctx context.Context, key string, thumbnailKey *string, status Status) (bool, error)

	// Get returns the record for key, or ErrRecordNotFound. Store failures
	// surface as ErrStoreUnavailable, never as a not-found.
	Get(ctx context.Context, key string) (*Record, error)

	// List returns all records ordered by created_at descending.
	List(ctx context.Context) ([]*Record, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// BlobStore is the durable object storage abstraction.
type BlobStore interface {
	// Upload durably stores the object before returning. Workers may assume
	// the object exists once a record for its key does.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Download retrieves the object bytes by key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignGet returns a time-limited GET URL for the object.
	PresignGet(ctx context.Context, key string) (string, error)
}

// Publisher emits an object-created event after the ingress coordinator has
// durably stored the object and created its pending record. Delivery to the
// workers is at-least-once; the coordinator makes no ordering promises beyond
// "object and record exist before the event is visible".
type Publisher interface {
	Publish(ctx context.Context, bucket, key string) error
}

// NoopPublisher discards events. Used when worker triggering is handled
// entirely outside the process (e.g. bucket notifications).
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, bucket, key string) error { return nil }
