package annotate

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of one worker's field-group on a record.
type Status string

// Status constants (typed).
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status. Terminal statuses never
// regress to pending; a redelivered worker outcome may only re-apply a
// terminal value.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record tracks one uploaded image and the progress of both workers.
//
// The annotation field-group (Annotation, AnnotationStatus) is written only
// by the annotation worker; the thumbnail field-group (ThumbnailKey,
// ThumbnailStatus) only by the thumbnail worker. No operation writes both.
type Record struct {
	ID               uuid.UUID `json:"id"`
	Key              string    `json:"key"`
	DisplayName      string    `json:"display_name"`
	Annotation       *string   `json:"annotation,omitempty"`
	AnnotationStatus Status    `json:"annotation_status"`
	ThumbnailKey     *string   `json:"thumbnail_key,omitempty"`
	ThumbnailStatus  Status    `json:"thumbnail_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Done reports whether both workers have reached a terminal status.
func (r *Record) Done() bool {
	return r.AnnotationStatus.IsTerminal() && r.ThumbnailStatus.IsTerminal()
}
