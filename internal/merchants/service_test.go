package merchants

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	pending map[string]*Merchant
	live    map[string]*Merchant
	access  map[string][]AccessEntry

	deleteError error
}

func newMockStore() *mockStore {
	return &mockStore{
		pending: make(map[string]*Merchant),
		live:    make(map[string]*Merchant),
		access:  make(map[string][]AccessEntry),
	}
}

func (m *mockStore) CreatePending(ctx context.Context, mr *Merchant) error {
	m.pending[mr.ID] = mr
	return nil
}

func (m *mockStore) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, mr := range m.pending {
		if mr.Email == email {
			return true, nil
		}
	}
	for _, mr := range m.live {
		if mr.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) GetPending(ctx context.Context, id string) (*Merchant, error) {
	mr, ok := m.pending[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return mr, nil
}

func (m *mockStore) ListPending(ctx context.Context) ([]Merchant, error) {
	var out []Merchant
	for _, mr := range m.pending {
		out = append(out, *mr)
	}
	return out, nil
}

func (m *mockStore) Approve(ctx context.Context, id string) (*Merchant, error) {
	mr, ok := m.pending[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	delete(m.pending, id)
	mr.Status = StatusActive
	m.live[id] = mr
	return mr, nil
}

func (m *mockStore) DeletePending(ctx context.Context, id string) error {
	if _, ok := m.pending[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.pending, id)
	return nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*Merchant, error) {
	mr, ok := m.live[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return mr, nil
}

func (m *mockStore) GetByAuthUser(ctx context.Context, authUserID string) (*Merchant, error) {
	for _, mr := range m.live {
		if mr.AuthUserID == authUserID {
			return mr, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockStore) List(ctx context.Context) ([]Merchant, error) {
	var out []Merchant
	for _, mr := range m.live {
		out = append(out, *mr)
	}
	return out, nil
}

func (m *mockStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts := map[Status]int{StatusPending: len(m.pending)}
	for _, mr := range m.live {
		counts[mr.Status]++
	}
	return counts, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	mr, ok := m.live[id]
	if !ok {
		return shared.ErrNotFound
	}
	mr.Status = status
	return nil
}

func (m *mockStore) UpdateProfile(ctx context.Context, id string, updates map[string]any) error {
	if _, ok := m.live[id]; !ok {
		return shared.ErrNotFound
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, ok := m.live[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.live, id)
	return nil
}

func (m *mockStore) RecordAccess(ctx context.Context, entry AccessEntry) error {
	m.access[entry.MerchantID] = append(m.access[entry.MerchantID], entry)
	return nil
}

func (m *mockStore) ListAccess(ctx context.Context, merchantID string, limit int) ([]AccessEntry, error) {
	return m.access[merchantID], nil
}

func (m *mockStore) DeleteAccess(ctx context.Context, merchantID string) error {
	delete(m.access, merchantID)
	return nil
}

// ============================================================================
// MOCK PRODUCT CATALOG
// ============================================================================

type mockCatalog struct {
	ids       []int64
	imageKeys []string

	batches       [][]int64
	failuresLeft  int
	batchAttempts int
}

func (m *mockCatalog) ListIDs(ctx context.Context, merchantID string) ([]int64, error) {
	return m.ids, nil
}

func (m *mockCatalog) ListImageKeys(ctx context.Context, merchantID string) ([]string, error) {
	return m.imageKeys, nil
}

func (m *mockCatalog) DeleteBatch(ctx context.Context, merchantID string, ids []int64) (int, error) {
	m.batchAttempts++
	if m.failuresLeft > 0 {
		m.failuresLeft--
		return 0, errors.New("deadlock detected")
	}
	m.batches = append(m.batches, ids)
	return len(ids), nil
}

// ============================================================================
// MOCK BLOB STORE
// ============================================================================

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

// ============================================================================
// HELPERS
// ============================================================================

func newTestService(store *mockStore, catalog *mockCatalog, blobs *mockBlobStore) *Service {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, catalog, blobs)
	svc.retry = shared.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	return svc
}

func validSignup() SignupRequest {
	return SignupRequest{
		Name:     "Mercado Central",
		Email:    "central@example.com",
		Password: "supersecret",
		City:     "Campinas",
		State:    "sp",
	}
}

// ============================================================================
// TESTS
// ============================================================================

func TestSignupQueuesPendingAccount(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, &mockCatalog{}, newMockBlobStore())

	lat := "-22,9071"
	req := validSignup()
	req.Latitude = &lat

	m, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, m.Status)
	assert.Equal(t, "SP", m.State)
	require.NotNil(t, m.Latitude)
	assert.InDelta(t, -22.9071, *m.Latitude, 1e-9)
	assert.NotEqual(t, "supersecret", m.PasswordHash)
	assert.Len(t, store.pending, 1)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, &mockCatalog{}, newMockBlobStore())

	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, shared.ErrDuplicateEmail)
}

func TestSignupValidatesPayload(t *testing.T) {
	svc := newTestService(newMockStore(), &mockCatalog{}, newMockBlobStore())

	req := validSignup()
	req.Email = "not-an-email"
	_, err := svc.Signup(context.Background(), req)
	assert.Error(t, err)
}

func TestApproveMovesAccountLive(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, &mockCatalog{}, newMockBlobStore())

	created, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, approved.Status)
	assert.Empty(t, store.pending)
	assert.Len(t, store.live, 1)
}

func TestAuthenticateRejectsBlockedAccount(t *testing.T) {
	store := newMockStore()
	store.live["m1"] = &Merchant{ID: "m1", AuthUserID: "auth-1", Status: StatusBlocked}
	svc := newTestService(store, &mockCatalog{}, newMockBlobStore())

	_, err := svc.Authenticate(context.Background(), "auth-1", "10.0.0.1", "test")
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

func TestAuthenticateRecordsAccess(t *testing.T) {
	store := newMockStore()
	store.live["m1"] = &Merchant{ID: "m1", AuthUserID: "auth-1", Status: StatusActive}
	svc := newTestService(store, &mockCatalog{}, newMockBlobStore())

	m, err := svc.Authenticate(context.Background(), "auth-1", "10.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Len(t, store.access["m1"], 1)
}

func TestDeleteChunksProductBatches(t *testing.T) {
	store := newMockStore()
	store.live["m1"] = &Merchant{ID: "m1", Status: StatusActive}

	catalog := &mockCatalog{}
	for i := int64(0); i < 1250; i++ {
		catalog.ids = append(catalog.ids, i)
	}
	catalog.imageKeys = []string{"m1/1.jpg", "m1/2.jpg"}
	blobs := newMockBlobStore()
	svc := newTestService(store, catalog, blobs)

	require.NoError(t, svc.Delete(context.Background(), "m1"))

	require.Len(t, catalog.batches, 3)
	assert.Len(t, catalog.batches[0], 500)
	assert.Len(t, catalog.batches[1], 500)
	assert.Len(t, catalog.batches[2], 250)
	assert.Empty(t, store.live)
	assert.Empty(t, store.access)
	assert.Contains(t, blobs.removed, "products/m1/1.jpg")
}

func TestDeleteRetriesFailedBatch(t *testing.T) {
	store := newMockStore()
	store.live["m1"] = &Merchant{ID: "m1", Status: StatusActive}

	catalog := &mockCatalog{ids: []int64{1, 2, 3}, failuresLeft: 2}
	svc := newTestService(store, catalog, newMockBlobStore())

	require.NoError(t, svc.Delete(context.Background(), "m1"))
	assert.Equal(t, 3, catalog.batchAttempts)
	require.Len(t, catalog.batches, 1)
}

func TestDeleteAbortsWhenBatchKeepsFailing(t *testing.T) {
	store := newMockStore()
	store.live["m1"] = &Merchant{ID: "m1", Status: StatusActive}

	catalog := &mockCatalog{ids: []int64{1, 2, 3}, failuresLeft: 10}
	svc := newTestService(store, catalog, newMockBlobStore())

	err := svc.Delete(context.Background(), "m1")
	assert.Error(t, err)
	assert.Len(t, store.live, 1, "account must survive a failed cascade")
}
