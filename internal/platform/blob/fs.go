package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps objects on local disk under root/<bucket>/<key> and serves
// them from baseURL. It stands in for the hosted storage platform in
// development and tests.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore constructs a filesystem-backed Store.
func NewFSStore(root, baseURL string) *FSStore {
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *FSStore) path(bucket, key string) string {
	return filepath.Join(s.root, bucket, filepath.FromSlash(key))
}

// Upload writes the object, creating bucket directories as needed.
func (s *FSStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	p := s.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("blob: mkdir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("blob: write %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the URL the object is served from.
func (s *FSStore) PublicURL(bucket, key string) string {
	return s.baseURL + "/" + bucket + "/" + key
}

// Remove deletes the given keys. Missing objects are not an error.
func (s *FSStore) Remove(ctx context.Context, bucket string, keys []string) error {
	var firstErr error
	for _, key := range keys {
		if err := os.Remove(s.path(bucket, key)); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("blob: remove %s/%s: %w", bucket, key, err)
			}
		}
	}
	return firstErr
}

// Exists reports whether an object is present. Used by the importer to decide
// if an image reference names a stored file.
func (s *FSStore) Exists(bucket, key string) bool {
	info, err := os.Stat(s.path(bucket, key))
	return err == nil && !info.IsDir()
}
