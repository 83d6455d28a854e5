package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/observability"
	"github.com/pricescout/pricescout/internal/products"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockCatalogStore struct {
	existing []products.Product
	inserted []products.Product
	updates  map[int64]map[string]any
}

func newMockCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{updates: make(map[int64]map[string]any)}
}

func (m *mockCatalogStore) ListByMerchant(ctx context.Context, merchantID string) ([]products.Product, error) {
	return m.existing, nil
}

func (m *mockCatalogStore) InsertBatch(ctx context.Context, items []products.Product) error {
	m.inserted = append(m.inserted, items...)
	return nil
}

func (m *mockCatalogStore) UpdateFields(ctx context.Context, merchantID string, id int64, updates map[string]any) error {
	m.updates[id] = updates
	return nil
}

type mockImageStore struct {
	stored map[string]bool
}

func (m *mockImageStore) Exists(bucket, key string) bool {
	return m.stored[bucket+"/"+key]
}

func (m *mockImageStore) PublicURL(bucket, key string) string {
	return "/static/uploads/" + bucket + "/" + key
}

func newTestImporter(store *mockCatalogStore, images *mockImageStore) *Importer {
	if images == nil {
		images = &mockImageStore{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImporter(logger, store, images, observability.NewMetrics())
}

func runCSV(t *testing.T, imp *Importer, mode Mode, csv string) *Outcome {
	t.Helper()
	path := writeUpload(t, "upload.csv", []byte(csv))
	outcome, err := imp.Run(context.Background(), "m1", path, "upload.csv", mode)
	require.NoError(t, err)
	return outcome
}

// ============================================================================
// TESTS
// ============================================================================

func TestImportHappyPath(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;marca;preco;categoria\nArroz;Tio João;R$ 1.234,56;graos\nFeijão;Camil;8,50;graos\n")

	assert.Empty(t, outcome.Errors)
	require.Len(t, outcome.Succeeded, 2)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "Arroz", store.inserted[0].Name)
	assert.InDelta(t, 1234.56, store.inserted[0].Price, 1e-9)
	assert.Equal(t, "m1", store.inserted[0].MerchantID)
}

func TestImportRejectsMissingName(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;preco\n;5,99\nFeijão;8,50\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindMissingName, outcome.Errors[0].Kind)
	assert.Equal(t, 2, outcome.Errors[0].Row)
	assert.Equal(t, "E-01", outcome.Errors[0].Code())
	assert.Len(t, store.inserted, 1)
}

func TestImportRejectsBadPrice(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;preco\nArroz;caro\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindMissingOrInvalidPrice, outcome.Errors[0].Kind)
	assert.Equal(t, "E-03", outcome.Errors[0].Code())
	assert.Empty(t, store.inserted)
}

func TestImportDuplicateKeepsFirstOccurrence(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;marca;preco\nArroz;Camil;5,99\nArroz;Camil;7,50\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindDuplicateInFile, outcome.Errors[0].Kind)
	assert.Equal(t, 3, outcome.Errors[0].Row)
	assert.Equal(t, 2, outcome.Errors[0].FirstRow)
	require.Len(t, store.inserted, 1)
	assert.InDelta(t, 5.99, store.inserted[0].Price, 1e-9)
	require.Len(t, outcome.Duplicates, 1)
	assert.Equal(t, 2, outcome.Duplicates[0].FirstRow)
	assert.Equal(t, 3, outcome.Duplicates[0].SecondRow)
}

func TestImportDuplicateDetectionFoldsAccents(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;marca;preco\nAçúcar;União;3,99\nACUCAR;uniao;4,10\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindDuplicateInFile, outcome.Errors[0].Kind)
	assert.Len(t, store.inserted, 1)
}

func TestImportSameNameEmptyBrandBothRows(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;preco\nArroz;5,99\nArroz;7,50\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, 3, outcome.Errors[0].Row)
	assert.Equal(t, KindDuplicateInFile, outcome.Errors[0].Kind)
	require.Len(t, store.inserted, 1)
	assert.InDelta(t, 5.99, store.inserted[0].Price, 1e-9)
}

func TestImportFlagsAmbiguousEmptyBrand(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeImport, "nome;marca;preco\nArroz;Camil;5,99\nArroz;;6,20\n")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindAmbiguousBrand, outcome.Errors[0].Kind)
	assert.Equal(t, 3, outcome.Errors[0].Row)
	assert.Equal(t, "E-06", outcome.Errors[0].Code())
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Camil", store.inserted[0].Brand)
}

func TestImportResolvesImages(t *testing.T) {
	store := newMockCatalogStore()
	images := &mockImageStore{stored: map[string]bool{"products/m1/arroz.jpg": true}}
	imp := newTestImporter(store, images)

	outcome := runCSV(t, imp, ModeImport,
		"nome;preco;imagem\nArroz;5,99;arroz.jpg\nFeijão;8,50;https://cdn.example.com/feijao.png\nMilho;3,20;missing.png\n")

	require.Empty(t, outcome.Errors)
	require.Len(t, store.inserted, 3)
	assert.Equal(t, "m1/arroz.jpg", store.inserted[0].ImageKey)
	assert.Equal(t, "https://cdn.example.com/feijao.png", store.inserted[1].ImageKey)
	assert.Equal(t, "", store.inserted[2].ImageKey)
}

func TestUpdateMatchesByNormalizedName(t *testing.T) {
	store := newMockCatalogStore()
	store.existing = []products.Product{
		{ID: 10, MerchantID: "m1", Name: "Arroz Integral", Brand: "Camil", Price: 9.99},
	}
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeUpdate, "nome;preco\nARROZ INTEGRAL;11,50\nInexistente;5,00\n")

	require.Len(t, outcome.Succeeded, 1)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindNotFoundForUpdate, outcome.Errors[0].Kind)
	assert.Equal(t, "E-05", outcome.Errors[0].Code())
	require.Contains(t, store.updates, int64(10))
	assert.InDelta(t, 11.5, store.updates[10]["price"].(float64), 1e-9)
}

func TestUpdateKeepsPriceOnInvalidValue(t *testing.T) {
	store := newMockCatalogStore()
	store.existing = []products.Product{
		{ID: 10, MerchantID: "m1", Name: "Arroz", Price: 9.99},
	}
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeUpdate, "nome;preco;categoria\nArroz;preço a combinar;graos\n")

	require.Len(t, outcome.Succeeded, 1)
	assert.True(t, outcome.Succeeded[0].PriceUnchanged)
	require.Len(t, outcome.Warnings, 1)
	assert.Equal(t, KindMissingOrInvalidPrice, outcome.Warnings[0].Kind)
	updates := store.updates[10]
	assert.NotContains(t, updates, "price")
	assert.Equal(t, "graos", updates["category"])
}

func TestUpdateNeverCreates(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)

	outcome := runCSV(t, imp, ModeUpdate, "nome;preco\nNovo Produto;5,00\n")

	assert.Empty(t, store.inserted)
	assert.Empty(t, outcome.Succeeded)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, KindNotFoundForUpdate, outcome.Errors[0].Kind)
}

func TestBuildReportSheets(t *testing.T) {
	store := newMockCatalogStore()
	imp := newTestImporter(store, nil)
	outcome := runCSV(t, imp, ModeImport, "nome;marca;preco\nArroz;Camil;5,99\nArroz;Camil;7,50\n;;\n")

	report, err := BuildReport(outcome)
	require.NoError(t, err)

	for _, sheet := range []string{"Summary", "Errors", "Imported", "Duplicates", "Tips"} {
		rows, err := report.GetRows(sheet)
		require.NoError(t, err, "sheet %s", sheet)
		assert.NotEmpty(t, rows, "sheet %s", sheet)
	}

	errRows, err := report.GetRows("Errors")
	require.NoError(t, err)
	// Header plus the duplicate row error.
	require.GreaterOrEqual(t, len(errRows), 2)
	assert.Contains(t, errRows[1], "E-04")
}
