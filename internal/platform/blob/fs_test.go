package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store := NewFSStore(t.TempDir(), "http://localhost:8080/static/uploads/")
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "products", "abc.jpg", []byte("jpeg-bytes"), "image/jpeg"))
	require.True(t, store.Exists("products", "abc.jpg"))
	require.Equal(t, "http://localhost:8080/static/uploads/products/abc.jpg", store.PublicURL("products", "abc.jpg"))

	require.NoError(t, store.Remove(ctx, "products", []string{"abc.jpg", "never-existed.jpg"}))
	require.False(t, store.Exists("products", "abc.jpg"))
}
