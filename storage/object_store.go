// Package storage persists generated artifacts, such as final standings
// snapshots, in an S3-compatible object store.
package storage

import (
	"context"
	"io"
)

// StoredObject describes a persisted artifact.
type StoredObject struct {
	Key  string
	URL  string
	ETag string
}

// ObjectStore is the engine's view of the artifact bucket.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (*StoredObject, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}
