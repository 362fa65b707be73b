package storage

import (
	"context"
)

// ObjectStorage keeps the original bytes of indexed images.
type ObjectStorage interface {
	// Put writes body under key, replacing any existing object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Exists reports whether key is already stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Bucket names the container objects are written to.
	Bucket() string
}
