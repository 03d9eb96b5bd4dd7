// Package storage defines the blob store abstraction used to mirror rendered
// assets. Implementations live in the local, memory and gcs subpackages.
package storage

import (
	"context"
	"io"
)

// BlobStore writes an object and returns a URI describing where it landed.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Copier duplicates a file from one path to another.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}
