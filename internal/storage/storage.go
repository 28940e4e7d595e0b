// Package storage moves event image bytes out of the document store when an
// object storage backend is configured. The default "document" backend keeps
// images inline in the event record and needs no client here.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Backend selector values accepted in config.
const (
	BackendDocument = "document"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Config mirrors the storage section of the application config. Declared
// here so the package does not depend on the config package.
type Config struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

// New constructs the configured ObjectStorage backend. Returns (nil, nil)
// for the document backend, which stores image bytes inline.
func New(ctx context.Context, cfg Config) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendDocument:
		return nil, nil
	case BackendMinio:
		return NewMinioClient(cfg.Minio)
	case BackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
