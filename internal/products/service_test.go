package products

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	items  map[int64]*Product
	nextID int64

	batches      [][]int64
	failuresLeft int
}

func newMockStore() *mockStore {
	return &mockStore{items: make(map[int64]*Product), nextID: 1}
}

func (m *mockStore) Create(ctx context.Context, p *Product) (int64, error) {
	id := m.nextID
	m.nextID++
	cp := *p
	cp.ID = id
	m.items[id] = &cp
	return id, nil
}

func (m *mockStore) Get(ctx context.Context, merchantID string, id int64) (*Product, error) {
	p, ok := m.items[id]
	if !ok || p.MerchantID != merchantID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) List(ctx context.Context, merchantID string, q ListQuery) ([]Product, int, error) {
	var out []Product
	for _, p := range m.items {
		if p.MerchantID == merchantID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) ListByMerchant(ctx context.Context, merchantID string) ([]Product, error) {
	items, _, err := m.List(ctx, merchantID, ListQuery{})
	return items, err
}

func (m *mockStore) UpdateFields(ctx context.Context, merchantID string, id int64, updates map[string]any) error {
	p, ok := m.items[id]
	if !ok || p.MerchantID != merchantID {
		return shared.ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := updates["price"]; ok {
		p.Price = v.(float64)
	}
	if v, ok := updates["image_key"]; ok {
		p.ImageKey = v.(string)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, merchantID string, id int64) error {
	p, ok := m.items[id]
	if !ok || p.MerchantID != merchantID {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockStore) DeleteBatch(ctx context.Context, merchantID string, ids []int64) (int, error) {
	if m.failuresLeft > 0 {
		m.failuresLeft--
		return 0, errors.New("deadlock detected")
	}
	m.batches = append(m.batches, ids)
	deleted := 0
	for _, id := range ids {
		if p, ok := m.items[id]; ok && p.MerchantID == merchantID {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockStore) GetAny(ctx context.Context, id int64) (*Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) Count(ctx context.Context) (int, error) {
	return len(m.items), nil
}

func (m *mockStore) CountPerMerchant(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, p := range m.items {
		counts[p.MerchantID]++
	}
	return counts, nil
}

type mockBlobStore struct {
	uploads map[string][]byte
	removed []string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{uploads: make(map[string][]byte)}
}

func (m *mockBlobStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	m.uploads[bucket+"/"+key] = data
	return nil
}

func (m *mockBlobStore) PublicURL(bucket, key string) string {
	return "/static/uploads/" + bucket + "/" + key
}

func (m *mockBlobStore) Remove(ctx context.Context, bucket string, keys []string) error {
	for _, key := range keys {
		m.removed = append(m.removed, bucket+"/"+key)
	}
	return nil
}

func newTestService(store *mockStore, blobs *mockBlobStore) *Service {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, blobs)
	svc.retry = shared.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	return svc
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateRejectsPriceAboveLimit(t *testing.T) {
	svc := newTestService(newMockStore(), newMockBlobStore())

	_, err := svc.Create(context.Background(), "m1", CreateRequest{Name: "Arroz", Price: 100000000})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateTrimsFields(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, newMockBlobStore())

	p, err := svc.Create(context.Background(), "m1", CreateRequest{Name: "  Arroz ", Brand: " Tio João ", Price: 22.5})
	require.NoError(t, err)
	assert.Equal(t, "Arroz", p.Name)
	assert.Equal(t, "Tio João", p.Brand)
	assert.Equal(t, "m1", p.MerchantID)
}

func TestToJSONUsesSentinelImage(t *testing.T) {
	svc := newTestService(newMockStore(), newMockBlobStore())

	out := svc.ToJSON(&Product{ID: 1, Name: "Arroz", Price: 22.5})
	assert.Equal(t, SentinelImageURL, out.ImageURL)
	assert.True(t, out.Incomplete)

	out = svc.ToJSON(&Product{ID: 2, Name: "Feijão", Price: 8, ImageKey: "m1/2.jpg", Description: "x", Category: "graos"})
	assert.Equal(t, "/static/uploads/products/m1/2.jpg", out.ImageURL)
	assert.False(t, out.Incomplete)
}

func TestUploadImageReplacesPrevious(t *testing.T) {
	store := newMockStore()
	store.items[7] = &Product{ID: 7, MerchantID: "m1", Name: "Arroz", ImageKey: "m1/7.png"}
	blobs := newMockBlobStore()
	svc := newTestService(store, blobs)

	url, err := svc.UploadImage(context.Background(), "m1", 7, []byte("img"), "photo.JPG", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/products/m1/7.jpg", url)
	assert.Contains(t, blobs.uploads, "products/m1/7.jpg")
	assert.Contains(t, blobs.removed, "products/m1/7.png")
}

func TestDeleteScopesToMerchant(t *testing.T) {
	store := newMockStore()
	store.items[7] = &Product{ID: 7, MerchantID: "m2", Name: "Arroz"}
	svc := newTestService(store, newMockBlobStore())

	err := svc.Delete(context.Background(), "m1", 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Len(t, store.items, 1)
}

func TestBatchDeleteChunksAndRetries(t *testing.T) {
	store := newMockStore()
	var ids []int64
	for i := int64(1); i <= 750; i++ {
		store.items[i] = &Product{ID: i, MerchantID: "m1"}
		ids = append(ids, i)
	}
	store.items[1].ImageKey = "m1/1.jpg"
	store.failuresLeft = 1
	blobs := newMockBlobStore()
	svc := newTestService(store, blobs)

	result, err := svc.BatchDelete(context.Background(), "m1", ids)
	require.NoError(t, err)
	assert.Equal(t, 750, result.Deleted)
	assert.Empty(t, result.FailedBatches)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 500)
	assert.Len(t, store.batches[1], 250)
	assert.Contains(t, blobs.removed, "products/m1/1.jpg")
	assert.Empty(t, store.items)
}

func TestBatchDeleteReportsFailedBatchesWithoutBlocking(t *testing.T) {
	store := newMockStore()
	var ids []int64
	for i := int64(1); i <= 600; i++ {
		store.items[i] = &Product{ID: i, MerchantID: "m1"}
		ids = append(ids, i)
	}
	// First batch fails through every retry, second batch still runs.
	store.failuresLeft = 3
	svc := newTestService(store, newMockBlobStore())

	result, err := svc.BatchDelete(context.Background(), "m1", ids)
	require.NoError(t, err)
	require.Len(t, result.FailedBatches, 1)
	assert.Len(t, result.FailedBatches[0], 500)
	assert.Equal(t, 100, result.Deleted)
	assert.Len(t, store.items, 500)
}
