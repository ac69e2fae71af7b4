package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/image-annotate/pkg/annotate"
	"github.com/tendant/image-annotate/pkg/annotate/caption"
)

// Annotation captions source images and owns the annotation field-group.
type Annotation struct {
	store     annotate.RecordStore
	blobs     annotate.BlobStore
	captioner caption.Captioner
	logger    *slog.Logger
}

// NewAnnotation creates the annotation worker.
func NewAnnotation(store annotate.RecordStore, blobs annotate.BlobStore, captioner caption.Captioner, logger *slog.Logger) *Annotation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotation{store: store, blobs: blobs, captioner: captioner, logger: logger}
}

func (w *Annotation) Name() string { return "annotation-worker" }

func (w *Annotation) Handle(ctx context.Context, evt Event) error {
	// Thumbnails are outputs of the other worker, never inputs here.
	if annotate.IsThumbnailKey(evt.Key) {
		w.logger.Info("skipping thumbnail object", "worker", w.Name(), "key", evt.Key)
		return nil
	}

	var (
		status  = annotate.StatusFailed
		text    string
		procErr error
	)

	data, err := fetch(ctx, w.blobs, evt.Key)
	if err != nil {
		text = fmt.Sprintf("source fetch failed: %v", err)
		procErr = err
	} else {
		result, err := w.captioner.Caption(ctx, data, annotate.MimeTypeFor(evt.Key))
		if err != nil {
			text = fmt.Sprintf("caption failed: %v", err)
			if annotate.IsTerminalFailure(err) {
				// Retrying will not change the outcome; settle as failed.
				w.logger.Warn("caption transform failed terminally", "key", evt.Key, "error", err)
			} else {
				procErr = err
			}
		} else {
			status = annotate.StatusCompleted
			text = result
		}
	}

	// Persist runs regardless of the outcome above. A worker that bails out
	// before writing a terminal status leaves the record stuck at pending.
	matched, storeErr := w.store.UpdateAnnotation(ctx, evt.Key, &text, status)
	if storeErr != nil {
		w.logger.Error("failed to persist annotation outcome", "key", evt.Key, "status", status, "error", storeErr)
		if procErr == nil {
			procErr = storeErr
		}
	} else if !matched {
		// No record for the key. Never materialize one from the worker side:
		// the event may be for an object the coordinator never registered.
		w.logger.Warn("no record matched annotation update", "key", evt.Key)
	}

	if procErr != nil {
		return fmt.Errorf("annotate %q: %w", evt.Key, procErr)
	}
	w.logger.Info("annotation settled", "key", evt.Key, "status", status)
	return nil
}
