// Package blob abstracts the object store holding product and profile images.
package blob

import "context"

// Store is the minimal surface the app needs from the hosted storage backend.
type Store interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PublicURL(bucket, key string) string
	Remove(ctx context.Context, bucket string, keys []string) error
}
