package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get/Stat when the key does not exist.
var ErrNotFound = errors.New("blobstore: object not found")

// ObjectInfo describes a stored object. Metadata is the user-defined
// key/value metadata attached at upload time.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

// Store is key/value object storage with per-key metadata. List returns
// keys only; Stat fetches metadata for one key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
