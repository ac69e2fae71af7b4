// Package memory provides an in-memory BlobStore used by tests and the
// development server.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tendant/image-annotate/pkg/annotate"
)

// Backend is an in-memory implementation of the annotate.BlobStore interface.
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return &annotate.StorageError{Op: "upload", Key: key, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.contentTypes[key] = contentType
	return nil
}

func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, &annotate.StorageError{Op: "download", Key: key, Err: annotate.ErrSourceUnavailable}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PresignGet returns a synthetic URL. There is no signing in memory; the URL
// exists so read projections behave the same as against real storage.
func (b *Backend) PresignGet(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[key]; !exists {
		return "", &annotate.StorageError{Op: "presign", Key: key, Err: annotate.ErrSourceUnavailable}
	}
	return fmt.Sprintf("memory://%s", key), nil
}

// ContentType returns the stored content type for key, for tests.
func (b *Backend) ContentType(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.contentTypes[key]
}
