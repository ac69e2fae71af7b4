package annotate

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ThumbnailPrefix is the object-key prefix under which thumbnails are stored.
// Workers must skip objects under this prefix to avoid feedback loops.
const ThumbnailPrefix = "thumbnails/"

// allowedExtensions is the safelist of upload file extensions.
var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// NewObjectKey derives the stable identity key for an upload from its display
// name. The key is a random token plus the normalized extension; the
// user-supplied name never becomes part of the key, only the extension is
// taken from it.
func NewObjectKey(displayName string) (string, error) {
	ext := strings.ToLower(path.Ext(displayName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: file extension %q is not allowed", ErrInvalidInput, ext)
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	return token + ext, nil
}

// ThumbnailKeyFor returns the derived thumbnail key for an original object
// key. The mapping is deterministic so a redelivered trigger regenerates the
// same key. Thumbnails are always JPEG.
func ThumbnailKeyFor(originalKey string) string {
	base := path.Base(originalKey)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return ThumbnailPrefix + base + ".jpg"
}

// IsThumbnailKey reports whether key refers to a derived thumbnail object.
func IsThumbnailKey(key string) bool {
	return strings.HasPrefix(key, ThumbnailPrefix)
}

// MimeTypeFor returns the MIME type for a safelisted file name, or
// application/octet-stream when the extension is unknown.
func MimeTypeFor(name string) string {
	if mt, ok := allowedExtensions[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// AllowedFile reports whether name carries a safelisted image extension.
func AllowedFile(name string) bool {
	_, ok := allowedExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// AllowedExtensions returns the safelisted extensions, sorted, without the
// leading dot. Used in user-facing validation messages.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return exts
}
