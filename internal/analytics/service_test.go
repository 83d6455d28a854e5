package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOCKS
// ============================================================================

type searchKey struct {
	term      string
	productID int64
}

type mockStore struct {
	searches map[searchKey]int64
	clicks   map[int64]int64
	names    map[int64]string
}

func newMockStore() *mockStore {
	return &mockStore{
		searches: map[searchKey]int64{},
		clicks:   map[int64]int64{},
		names:    map[int64]string{},
	}
}

func (m *mockStore) IncrementSearch(ctx context.Context, term string, productID int64, at time.Time) error {
	m.searches[searchKey{term, productID}]++
	return nil
}

func (m *mockStore) IncrementClick(ctx context.Context, productID int64, name string, at time.Time) error {
	m.clicks[productID]++
	m.names[productID] = name
	return nil
}

func (m *mockStore) Totals(ctx context.Context) (searches, clicks int64, err error) {
	for _, c := range m.searches {
		searches += c
	}
	for _, c := range m.clicks {
		clicks += c
	}
	return searches, clicks, nil
}

func (m *mockStore) TopSearches(ctx context.Context, limit int) ([]SearchTermStat, error) {
	byTerm := map[string]int64{}
	for key, count := range m.searches {
		byTerm[key.term] += count
	}
	var stats []SearchTermStat
	for term, count := range byTerm {
		stats = append(stats, SearchTermStat{Term: term, Count: count})
	}
	return stats, nil
}

func (m *mockStore) TopClicks(ctx context.Context, limit int) ([]ProductClickStat, error) {
	var stats []ProductClickStat
	for id, count := range m.clicks {
		stats = append(stats, ProductClickStat{ProductID: id, Name: m.names[id], Count: count})
	}
	return stats, nil
}

func newTestService(store Store) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

// ============================================================================
// TESTS
// ============================================================================

func TestCountSearchFoldsVariants(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.CountSearch(ctx, "Açúcar", []int64{1}))
	require.NoError(t, svc.CountSearch(ctx, "acucar", []int64{1}))
	require.NoError(t, svc.CountSearch(ctx, "  ACUCAR ", []int64{1}))
	require.NoError(t, svc.CountSearch(ctx, "", []int64{1}))

	assert.Equal(t, map[searchKey]int64{{"acucar", 1}: 3}, store.searches)
}

func TestCountSearchKeysPerMatchedProduct(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.CountSearch(ctx, "arroz", []int64{1, 2, 3}))
	require.NoError(t, svc.CountSearch(ctx, "arroz", []int64{2, 0}))

	assert.Equal(t, map[searchKey]int64{
		{"arroz", 1}: 1,
		{"arroz", 2}: 2,
		{"arroz", 3}: 1,
	}, store.searches, "each matched product gets its own counter; invalid IDs dropped")
}

func TestCountClickIgnoresInvalidID(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.CountClick(ctx, 7, "Arroz"))
	require.NoError(t, svc.CountClick(ctx, 7, "Arroz Integral"))
	require.NoError(t, svc.CountClick(ctx, 0, "Fantasma"))

	assert.Equal(t, int64(2), store.clicks[7])
	assert.Equal(t, "Arroz Integral", store.names[7], "latest name wins")
	assert.Len(t, store.clicks, 1)
}

func TestTaskRoundTrip(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	task, err := NewSearchTask(SearchPayload{Term: "feijão", ProductIDs: []int64{5}})
	require.NoError(t, err)
	require.NoError(t, svc.HandleSearchTask(ctx, task))
	assert.Equal(t, int64(1), store.searches[searchKey{"feijao", 5}])

	click, err := NewClickTask(ClickPayload{ProductID: 3, Name: "Feijão Preto"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleClickTask(ctx, click))
	assert.Equal(t, int64(1), store.clicks[3])
}

func TestHandlersSkipMalformedPayloads(t *testing.T) {
	svc := newTestService(newMockStore())
	bad := asynq.NewTask(TaskTypeSearch, []byte("not json"))

	err := svc.HandleSearchTask(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestTopStatsAppliesDefaultLimit(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.CountSearch(ctx, "arroz", []int64{1}))
	require.NoError(t, svc.CountClick(ctx, 1, "Arroz"))

	stats, err := svc.TopStats(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, stats.TopSearches, 1)
	assert.Len(t, stats.TopClicks, 1)
}
