// Package caption provides the image captioning capability used by the
// annotation worker. The external vision model is treated as an opaque
// capability: one call in, one caption or a definitive failure out.
package caption

import "context"

// Captioner produces a caption for an image. A blocked or empty model
// response is a definitive failure (annotate.TransformError), not a
// transient one; network and server-side failures are returned as plain
// errors so the delivery layer can retry.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Func adapts a function to the Captioner interface. Used in tests.
type Func func(ctx context.Context, image []byte, mimeType string) (string, error)

func (f Func) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f(ctx, image, mimeType)
}
