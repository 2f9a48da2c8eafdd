package uploads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMaxBytes bounds a single uploaded image.
const DefaultMaxBytes int64 = 5 << 20

var (
	// ErrEmpty is returned for zero-length payloads.
	ErrEmpty = errors.New("uploads: file is empty")
	// ErrTooLarge is returned when the payload exceeds the configured limit.
	ErrTooLarge = errors.New("uploads: file is too large")
	// ErrContentType is returned for media types outside the allow list.
	ErrContentType = errors.New("uploads: content type not allowed")
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Image is a file queued for upload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
	Purpose     Purpose
	// Scope is the owning entity of the object, e.g. the city for hero banners.
	Scope string
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// Validate checks the payload against the allow list and size limit.
func Validate(img Image, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(img.Data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(img.Data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(img.Data), maxBytes)
	}
	contentType := normalizeContentType(img.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(http.DetectContentType(img.Data))
	}
	if _, ok := allowedTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrContentType, contentType)
	}
	return contentType, nil
}

// Extension returns the canonical file extension for an allowed content type.
func Extension(contentType string) string {
	return allowedTypes[normalizeContentType(contentType)]
}

func normalizeContentType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}
