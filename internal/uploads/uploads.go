// Package uploads stores user-supplied files (club images) behind a small
// object-store interface with a local disk and an S3 implementation.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("object not found")
	ErrInvalidKey      = errors.New("invalid object key")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// Store is a flat key/value object store
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Backend names accepted in Config.Backend
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

type Config struct {
	Backend string
	Dir     string
	S3      S3Config
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendDisk:
		return NewDiskStore(cfg.Dir)
	case BackendS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}

// NewKey returns a fresh object key under prefix, bucketed by date
func NewKey(prefix string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s", prefix, d.Year(), d.Month(), uuid.New())
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// SniffImage detects the content type of data and accepts only the image
// formats browsers render inline. The client-declared type is never trusted.
func SniffImage(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	if !imageTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}
