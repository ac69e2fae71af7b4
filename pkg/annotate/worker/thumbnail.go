package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/tendant/image-annotate/pkg/annotate"
)

// Thumbnail generates JPEG thumbnails and owns the thumbnail field-group.
type Thumbnail struct {
	store  annotate.RecordStore
	blobs  annotate.BlobStore
	width  int
	height int
	logger *slog.Logger
}

// NewThumbnail creates the thumbnail worker. Zero dimensions fall back to
// 128x128.
func NewThumbnail(store annotate.RecordStore, blobs annotate.BlobStore, width, height int, logger *slog.Logger) *Thumbnail {
	if width <= 0 {
		width = 128
	}
	if height <= 0 {
		height = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Thumbnail{store: store, blobs: blobs, width: width, height: height, logger: logger}
}

func (w *Thumbnail) Name() string { return "thumbnail-worker" }

func (w *Thumbnail) Handle(ctx context.Context, evt Event) error {
	// Never thumbnail a thumbnail; that would re-trigger this worker forever.
	if annotate.IsThumbnailKey(evt.Key) {
		w.logger.Info("skipping thumbnail object", "worker", w.Name(), "key", evt.Key)
		return nil
	}

	var (
		status   = annotate.StatusFailed
		thumbKey *string
		procErr  error
	)

	data, err := fetch(ctx, w.blobs, evt.Key)
	if err != nil {
		procErr = err
	} else if rendered, err := w.render(data); err != nil {
		if annotate.IsTerminalFailure(err) {
			w.logger.Warn("thumbnail transform failed terminally", "key", evt.Key, "error", err)
		} else {
			procErr = err
		}
	} else {
		// The derived key is deterministic, so a redelivered event overwrites
		// the same object rather than multiplying thumbnails.
		key := annotate.ThumbnailKeyFor(evt.Key)
		if err := w.blobs.Upload(ctx, key, bytes.NewReader(rendered), "image/jpeg"); err != nil {
			procErr = err
		} else {
			status = annotate.StatusCompleted
			thumbKey = &key
		}
	}

	// Persist runs regardless of the outcome above; see Annotation.Handle.
	matched, storeErr := w.store.UpdateThumbnail(ctx, evt.Key, thumbKey, status)
	if storeErr != nil {
		w.logger.Error("failed to persist thumbnail outcome", "key", evt.Key, "status", status, "error", storeErr)
		if procErr == nil {
			procErr = storeErr
		}
	} else if !matched {
		w.logger.Warn("no record matched thumbnail update", "key", evt.Key)
	}

	if procErr != nil {
		return fmt.Errorf("thumbnail %q: %w", evt.Key, procErr)
	}
	w.logger.Info("thumbnail settled", "key", evt.Key, "status", status)
	return nil
}

// render decodes the source image and encodes a bounded JPEG thumbnail.
// Undecodable input is a definitive failure.
func (w *Thumbnail) render(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &annotate.TransformError{Reason: "cannot decode image", Err: err}
	}

	thumb := imaging.Thumbnail(src, w.width, w.height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, &annotate.TransformError{Reason: "cannot encode thumbnail", Err: err}
	}
	return buf.Bytes(), nil
}
