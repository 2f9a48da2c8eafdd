package uploads

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

// MemoryUploader keeps uploads in memory and serves them from a base URL.
// It backs local development and tests.
type MemoryUploader struct {
	mu       sync.RWMutex
	baseURL  string
	maxBytes int64
	objects  map[string]object
}

// NewMemoryUploader creates an uploader whose URLs are rooted at baseURL.
func NewMemoryUploader(baseURL string, maxBytes int64) *MemoryUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &MemoryUploader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		objects:  make(map[string]object),
	}
}

// Upload implements Uploader.
func (m *MemoryUploader) Upload(ctx context.Context, img Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	contentType, err := Validate(img, m.maxBytes)
	if err != nil {
		return "", err
	}
	path, err := BuildObjectPath(img.Purpose, PathParams{Scope: img.Scope, Ext: Extension(contentType)})
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[path] = object{
		Path:        path,
		ContentType: contentType,
		Data:        append([]byte(nil), img.Data...),
	}
	m.mu.Unlock()
	return m.baseURL + "/" + path, nil
}

// Len returns the number of stored objects.
func (m *MemoryUploader) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves stored objects by path relative to the handler mount.
func (m *MemoryUploader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	m.mu.RLock()
	obj, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(obj.Data)
}
