package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	fbstorage "firebase.google.com/go/v4/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	downloadTokenKey = "firebaseStorageDownloadTokens"
	downloadHost     = "https://firebasestorage.googleapis.com"
	heroCacheControl = "public, max-age=3600"
)

// object is a single upload handed to a sink.
type object struct {
	Path         string
	ContentType  string
	CacheControl string
	Metadata     map[string]string
	Data         []byte
}

// sink persists objects into a bucket.
type sink interface {
	Bucket() string
	Put(ctx context.Context, obj object) error
}

// StorageUploader writes images to Firebase Storage and returns token-based
// download URLs.
type StorageUploader struct {
	sink     sink
	maxBytes int64
	logger   *zap.Logger
	newToken func() string
}

// StorageOption customises the uploader.
type StorageOption func(*StorageUploader)

// WithMaxBytes overrides the size limit.
func WithMaxBytes(limit int64) StorageOption {
	return func(u *StorageUploader) {
		if limit > 0 {
			u.maxBytes = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) StorageOption {
	return func(u *StorageUploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// NewStorageUploader resolves the bucket through the Firebase Storage client.
// An empty bucket name selects the project default bucket.
func NewStorageUploader(client *fbstorage.Client, bucket string, opts ...StorageOption) (*StorageUploader, error) {
	if client == nil {
		return nil, errors.New("uploads: storage client is required")
	}
	var (
		handle *gcs.BucketHandle
		err    error
	)
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		handle, err = client.DefaultBucket()
	} else {
		handle, err = client.Bucket(bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("uploads: resolve bucket: %w", err)
	}
	if bucket == "" {
		attrs, err := handle.Attrs(context.Background())
		if err != nil {
			return nil, fmt.Errorf("uploads: inspect default bucket: %w", err)
		}
		bucket = attrs.Name
	}
	return newStorageUploader(&bucketSink{name: bucket, handle: handle}, opts...), nil
}

func newStorageUploader(s sink, opts ...StorageOption) *StorageUploader {
	u := &StorageUploader{
		sink:     s,
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// Upload validates and writes the image, returning its download URL.
func (u *StorageUploader) Upload(ctx context.Context, img Image) (string, error) {
	if u == nil || u.sink == nil {
		return "", errors.New("uploads: uploader is not initialised")
	}
	contentType, err := Validate(img, u.maxBytes)
	if err != nil {
		return "", err
	}
	path, err := BuildObjectPath(img.Purpose, PathParams{Scope: img.Scope, Ext: Extension(contentType)})
	if err != nil {
		return "", err
	}
	token := u.newToken()
	obj := object{
		Path:         path,
		ContentType:  contentType,
		CacheControl: heroCacheControl,
		Metadata: map[string]string{
			downloadTokenKey: token,
			"originalName":   strings.TrimSpace(img.Name),
		},
		Data: img.Data,
	}
	if err := u.sink.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("uploads: write %s: %w", path, err)
	}
	u.logger.Info("image uploaded",
		zap.String("bucket", u.sink.Bucket()),
		zap.String("object", path),
		zap.Int("bytes", len(img.Data)),
	)
	return DownloadURL(u.sink.Bucket(), path, token), nil
}

// DownloadURL builds the Firebase Storage download URL for an object.
func DownloadURL(bucket, path, token string) string {
	u := fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media", downloadHost, bucket, url.PathEscape(path))
	if token != "" {
		u += "&token=" + url.QueryEscape(token)
	}
	return u
}

type bucketSink struct {
	name   string
	handle *gcs.BucketHandle
}

func (b *bucketSink) Bucket() string {
	return b.name
}

func (b *bucketSink) Put(ctx context.Context, obj object) error {
	w := b.handle.Object(obj.Path).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = obj.CacheControl
	w.Metadata = obj.Metadata
	if _, err := io.Copy(w, bytes.NewReader(obj.Data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
