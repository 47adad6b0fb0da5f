// Package storage persists uploaded images and hands back an opaque
// reference (a local path or an object URL) that is stored on the owning
// record as-is.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Store saves and removes image blobs.
type Store interface {
	// Put stores data under key and returns the reference clients use to
	// fetch it.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Delete removes the object behind ref. Unknown refs are ignored.
	Delete(ctx context.Context, ref string) error
}

var (
	ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are allowed")
	ErrTooLarge        = errors.New("image is too large")
	ErrEmpty           = errors.New("image is empty")
)

// allowedTypes maps sniffed MIME types to the file extension used for keys.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectImage sniffs the content type of data and checks it against the
// allowed image types and the size limit. The declared type of an upload is
// never trusted.
func DetectImage(data []byte, maxBytes int64) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}
	contentType = http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w (got %s)", ErrUnsupportedType, contentType)
	}
	return contentType, ext, nil
}

// NewKey returns a random object key under prefix, e.g. "entries/<uuid>.png".
func NewKey(prefix, ext string) string {
	key := uuid.NewString() + ext
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
