package storage

import (
	"context"
	"time"
)

// Entry describes a stored object returned by List.
type Entry struct {
	Key        string
	URL        string
	Size       int64
	UploadedAt time.Time
}

// BlobStore persists opaque byte blobs under slash-separated keys and serves
// them back over public URLs. Implementations are fallible collaborators
// (network, auth); callers treat every method as such.
type BlobStore interface {
	// Put writes data at key with the given content type and returns the
	// public URL of the stored object. Writing an existing key overwrites it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get reads the object bytes at key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// List enumerates objects under a key prefix.
	List(ctx context.Context, prefix string) ([]Entry, error)
}
