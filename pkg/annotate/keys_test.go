package annotate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	t.Run("accepts allowed extensions", func(t *testing.T) {
		for _, name := range []string{"photo.png", "photo.jpg", "photo.jpeg", "photo.gif", "PHOTO.PNG"} {
			key, err := NewObjectKey(name)
			require.NoError(t, err, name)
			assert.NotEmpty(t, key)
			assert.True(t, strings.Contains(key, "."), "key should carry an extension")
		}
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		for _, name := range []string{"notes.txt", "archive.zip", "photo", "", "script.png.exe"} {
			_, err := NewObjectKey(name)
			assert.ErrorIs(t, err, ErrInvalidInput, name)
		}
	})

	t.Run("keys are unique per upload", func(t *testing.T) {
		a, err := NewObjectKey("photo.png")
		require.NoError(t, err)
		b, err := NewObjectKey("photo.png")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestThumbnailKeyFor(t *testing.T) {
	key := ThumbnailKeyFor("abc123.png")
	assert.Equal(t, "thumbnails/abc123.jpg", key)

	// Deterministic: a redelivered event derives the same key.
	assert.Equal(t, key, ThumbnailKeyFor("abc123.png"))

	assert.True(t, IsThumbnailKey(key))
	assert.False(t, IsThumbnailKey("abc123.png"))
}

func TestAllowedExtensions(t *testing.T) {
	assert.Equal(t, []string{"gif", "jpeg", "jpg", "png"}, AllowedExtensions())
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", MimeTypeFor("a.png"))
	assert.Equal(t, "image/jpeg", MimeTypeFor("a.jpg"))
	assert.Equal(t, "image/jpeg", MimeTypeFor("a.jpeg"))
	assert.Equal(t, "image/gif", MimeTypeFor("a.gif"))
	assert.Equal(t, "application/octet-stream", MimeTypeFor("a.bin"))
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.False(t, Status("running").IsValid())

	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestRecordDone(t *testing.T) {
	r := Record{AnnotationStatus: StatusPending, ThumbnailStatus: StatusPending}
	assert.False(t, r.Done())

	r.AnnotationStatus = StatusCompleted
	assert.False(t, r.Done())

	r.ThumbnailStatus = StatusFailed
	assert.True(t, r.Done())
}
