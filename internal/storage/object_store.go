package storage

import "context"

// ObjectStore is the path-addressed blob store behind product images.
// Upload overwrites any existing object at the same path, so re-importing a
// product is idempotent at the storage layer.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
