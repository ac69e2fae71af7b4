package annotate

import (
	"context"
	"io"
	"time"
)

// Service is the front-door interface consumed by the HTTP layer.
type Service interface {
	// Upload validates and durably stores an uploaded image, creates its
	// pending record, and publishes the object-created event. A duplicate
	// key is treated as an idempotent retry, not an error.
	Upload(ctx context.Context, req UploadRequest) (*Record, error)

	// GetStatus returns the point-in-time public status projection for key.
	GetStatus(ctx context.Context, key string) (*StatusView, error)

	// ListGallery returns all records newest-first with presigned URLs
	// attached where available.
	ListGallery(ctx context.Context) ([]*GalleryImage, error)

	// Healthy reports whether the record store is reachable.
	Healthy(ctx context.Context) error
}

// UploadRequest carries one validated multipart upload.
type UploadRequest struct {
	FileName string
	Data     io.Reader
}

// StatusView is the public poll projection of a record. ThumbnailURL is set
// only when the thumbnail status is completed, and AnnotationText only when
// the annotation status is completed; failure detail never leaks to clients.
type StatusView struct {
	Key              string    `json:"key"`
	DisplayName      string    `json:"display_name"`
	AnnotationStatus Status    `json:"annotation_status"`
	ThumbnailStatus  Status    `json:"thumbnail_status"`
	AnnotationText   *string   `json:"annotation_text"`
	ThumbnailURL     *string   `json:"thumbnail_url"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// GalleryImage is one gallery entry. OriginalURL may be empty when presigning
// failed for that record; the rest of the page is unaffected.
type GalleryImage struct {
	Key              string    `json:"key"`
	DisplayName      string    `json:"display_name"`
	AnnotationStatus Status    `json:"annotation_status"`
	ThumbnailStatus  Status    `json:"thumbnail_status"`
	AnnotationText   *string   `json:"annotation_text"`
	OriginalURL      string    `json:"original_url,omitempty"`
	ThumbnailURL     string    `json:"thumbnail_url,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
