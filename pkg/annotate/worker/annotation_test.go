package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-annotate/pkg/annotate"
	"github.com/tendant/image-annotate/pkg/annotate/caption"
	memoryrepo "github.com/tendant/image-annotate/pkg/annotate/repo/memory"
	memorystorage "github.com/tendant/image-annotate/pkg/annotate/storage/memory"
)

func seedRecord(t *testing.T, store annotate.RecordStore, blobs annotate.BlobStore, key string, data []byte) {
	t.Helper()
	ctx := context.Background()
	err := blobs.Upload(ctx, key, bytes.NewReader(data), annotate.MimeTypeFor(key))
	require.NoError(t, err)
	_, err = store.CreatePending(ctx, key, key)
	require.NoError(t, err)
}

func TestAnnotationSuccess(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	seedRecord(t, store, blobs, "cat.png", []byte("image bytes"))

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		assert.Equal(t, []byte("image bytes"), image)
		assert.Equal(t, "image/png", mimeType)
		return "a sleeping cat", nil
	}), nil)

	err := w.Handle(ctx, Event{Bucket: "uploads", Key: "cat.png"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, annotate.StatusCompleted, rec.AnnotationStatus)
	require.NotNil(t, rec.Annotation)
	assert.Equal(t, "a sleeping cat", *rec.Annotation)
	// The other field-group is untouched.
	assert.Equal(t, annotate.StatusPending, rec.ThumbnailStatus)
}

func TestAnnotationSkipsThumbnailObjects(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		t.Fatal("captioner must not be called for thumbnail objects")
		return "", nil
	}), nil)

	err := w.Handle(ctx, Event{Bucket: "uploads", Key: "thumbnails/cat.jpg"})
	require.NoError(t, err)
}

func TestAnnotationTerminalFailurePersistsFailed(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	seedRecord(t, store, blobs, "cat.png", []byte("image bytes"))

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		return "", &annotate.TransformError{Reason: "content blocked: SAFETY"}
	}), nil)

	// A definitive failure settles the event: no redelivery.
	err := w.Handle(ctx, Event{Bucket: "uploads", Key: "cat.png"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, annotate.StatusFailed, rec.AnnotationStatus)
	require.NotNil(t, rec.Annotation)
	assert.Contains(t, *rec.Annotation, "caption failed")
}

func TestAnnotationTransientFailurePersistsFailedAndRetries(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	seedRecord(t, store, blobs, "cat.png", []byte("image bytes"))

	transient := errors.New("model unavailable: status 503")
	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		return "", transient
	}), nil)

	err := w.Handle(ctx, Event{Bucket: "uploads", Key: "cat.png"})
	require.ErrorIs(t, err, transient)

	// Even though redelivery is requested, the failure was already persisted
	// so the record cannot get stuck at pending.
	rec, err := store.Get(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, annotate.StatusFailed, rec.AnnotationStatus)
}

func TestAnnotationFetchFailurePersistsFailed(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	_, err := store.CreatePending(ctx, "missing.png", "missing.png")
	require.NoError(t, err)

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		t.Fatal("captioner must not be called when the source is missing")
		return "", nil
	}), nil)

	err = w.Handle(ctx, Event{Bucket: "uploads", Key: "missing.png"})
	require.ErrorIs(t, err, annotate.ErrSourceUnavailable)

	rec, err := store.Get(ctx, "missing.png")
	require.NoError(t, err)
	assert.Equal(t, annotate.StatusFailed, rec.AnnotationStatus)
	require.NotNil(t, rec.Annotation)
	assert.Contains(t, *rec.Annotation, "source fetch failed")
}

func TestAnnotationRedeliveryOverwritesSameOutcome(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	seedRecord(t, store, blobs, "cat.png", []byte("image bytes"))

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		return "a sleeping cat", nil
	}), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Handle(ctx, Event{Bucket: "uploads", Key: "cat.png"}))
	}

	rec, err := store.Get(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, annotate.StatusCompleted, rec.AnnotationStatus)
	require.NotNil(t, rec.Annotation)
	assert.Equal(t, "a sleeping cat", *rec.Annotation)
}

func TestAnnotationUnknownRecordIsSettled(t *testing.T) {
	ctx := context.Background()
	store := memoryrepo.New()
	blobs := memorystorage.New()
	err := blobs.Upload(ctx, "orphan.png", bytes.NewReader([]byte("image bytes")), "image/png")
	require.NoError(t, err)

	w := NewAnnotation(store, blobs, caption.Func(func(ctx context.Context, image []byte, mimeType string) (string, error) {
		return "an orphan", nil
	}), nil)

	// No record exists for the object. The worker must neither create one
	// nor ask for redelivery.
	err = w.Handle(ctx, Event{Bucket: "uploads", Key: "orphan.png"})
	require.NoError(t, err)

	_, err = store.Get(ctx, "orphan.png")
	assert.ErrorIs(t, err, annotate.ErrRecordNotFound)
}
