package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// service implements the Service interface.
type service struct {
	store     RecordStore
	blobs     BlobStore
	publisher Publisher
	bucket    string
	logger    *slog.Logger
	urls      *urlMemo
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithRecordStore sets the record store for the service.
func WithRecordStore(store RecordStore) Option {
	return func(s *service) { s.store = store }
}

// WithBlobStore sets the blob store for the service.
func WithBlobStore(blobs BlobStore) Option {
	return func(s *service) { s.blobs = blobs }
}

// WithPublisher sets the object-created event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithBucket sets the bucket name stamped into published events.
func WithBucket(bucket string) Option {
	return func(s *service) { s.bucket = bucket }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithURLMemoTTL bounds how long presigned URLs are memoized. Zero disables
// the memo.
func WithURLMemoTTL(ttl time.Duration) Option {
	return func(s *service) { s.urls = newURLMemo(ttl) }
}

// NewService creates a new service instance with the given options.
func NewService(options ...Option) (Service, error) {
	s := &service{
		publisher: NoopPublisher{},
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if s.store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.urls == nil {
		s.urls = newURLMemo(0)
	}
	return s, nil
}

// Upload is the ingress coordinator. Ordering matters: the object must be
// durable before the record exists, and the record must exist before the
// event is published, so workers can always fetch their source.
func (s *service) Upload(ctx context.Context, req UploadRequest) (*Record, error) {
	key, err := NewObjectKey(req.FileName)
	if err != nil {
		return nil, err
	}

	if err := s.blobs.Upload(ctx, key, req.Data, MimeTypeFor(req.FileName)); err != nil {
		return nil, &StorageError{Op: "upload", Key: key, Err: err}
	}

	id, err := s.store.CreatePending(ctx, key, req.FileName)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// Idempotent retry of the same upload; the existing row wins.
			s.logger.Info("duplicate record key on upload, treating as success", "key", key)
		} else {
			// The object may now exist without a record. Surfaced, not
			// hidden; reconciliation is an operational concern.
			return nil, err
		}
	}

	if err := s.publisher.Publish(ctx, s.bucket, key); err != nil {
		s.logger.Error("failed to publish object-created event", "key", key, "error", err)
		return nil, fmt.Errorf("publish object-created event for %q: %w", key, err)
	}

	now := time.Now().UTC()
	return &Record{
		ID:               id,
		Key:              key,
		DisplayName:      req.FileName,
		AnnotationStatus: StatusPending,
		ThumbnailStatus:  StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// GetStatus assembles the poll projection. It is a pure read: safe at any
// polling frequency and tolerant of either worker's update landing mid-poll.
func (s *service) GetStatus(ctx context.Context, key string) (*StatusView, error) {
	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		Key:              rec.Key,
		DisplayName:      rec.DisplayName,
		AnnotationStatus: rec.AnnotationStatus,
		ThumbnailStatus:  rec.ThumbnailStatus,
		UploadedAt:       rec.CreatedAt,
	}
	if rec.AnnotationStatus == StatusCompleted {
		view.AnnotationText = rec.Annotation
	}
	if rec.ThumbnailStatus == StatusCompleted && rec.ThumbnailKey != nil {
		url, err := s.presign(ctx, *rec.ThumbnailKey)
		if err != nil {
			s.logger.Error("failed to presign thumbnail", "key", key, "error", err)
		} else {
			view.ThumbnailURL = &url
		}
	}
	return view, nil
}

func (s *service) ListGallery(ctx context.Context) ([]*GalleryImage, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	images := make([]*GalleryImage, 0, len(records))
	for _, rec := range records {
		img := &GalleryImage{
			Key:              rec.Key,
			DisplayName:      rec.DisplayName,
			AnnotationStatus: rec.AnnotationStatus,
			ThumbnailStatus:  rec.ThumbnailStatus,
			UploadedAt:       rec.CreatedAt,
		}
		if rec.AnnotationStatus == StatusCompleted {
			img.AnnotationText = rec.Annotation
		}
		if url, err := s.presign(ctx, rec.Key); err != nil {
			s.logger.Error("failed to presign original", "key", rec.Key, "error", err)
		} else {
			img.OriginalURL = url
		}
		if rec.ThumbnailStatus == StatusCompleted && rec.ThumbnailKey != nil {
			if url, err := s.presign(ctx, *rec.ThumbnailKey); err != nil {
				s.logger.Error("failed to presign thumbnail", "key", rec.Key, "error", err)
			} else {
				img.ThumbnailURL = url
			}
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *service) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *service) presign(ctx context.Context, key string) (string, error) {
	if url, ok := s.urls.get(key); ok {
		return url, nil
	}
	url, err := s.blobs.PresignGet(ctx, key)
	if err != nil {
		return "", err
	}
	s.urls.put(key, url)
	return url, nil
}

// urlMemo is a small TTL-bounded memo for presigned URLs. Entries expire
// well before the signature itself does.
type urlMemo struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoEntry
}

type memoEntry struct {
	url     string
	expires time.Time
}

func newURLMemo(ttl time.Duration) *urlMemo {
	return &urlMemo{ttl: ttl, entries: make(map[string]memoEntry)}
}

func (m *urlMemo) get(key string) (string, bool) {
	if m.ttl <= 0 {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(m.entries, key)
		return "", false
	}
	return e.url, true
}

func (m *urlMemo) put(key, url string) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoEntry{url: url, expires: time.Now().Add(m.ttl)}
}
