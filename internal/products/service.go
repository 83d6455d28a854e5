package products

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pricescout/pricescout/internal/platform/blob"
	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// imageBucket is the blob bucket holding product images.
const imageBucket = "products"

// deleteBatchSize bounds how many rows one delete statement touches.
const deleteBatchSize = 500

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, p *Product) (int64, error)
	Get(ctx context.Context, merchantID string, id int64) (*Product, error)
	List(ctx context.Context, merchantID string, q ListQuery) ([]Product, int, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]Product, error)
	UpdateFields(ctx context.Context, merchantID string, id int64, updates map[string]any) error
	Delete(ctx context.Context, merchantID string, id int64) error
	DeleteBatch(ctx context.Context, merchantID string, ids []int64) (int, error)
	GetAny(ctx context.Context, id int64) (*Product, error)
	Count(ctx context.Context) (int, error)
	CountPerMerchant(ctx context.Context) (map[string]int, error)
}

// Service implements catalog business logic for the merchant panel.
type Service struct {
	logger   *slog.Logger
	repo     Store
	blobs    blob.Store
	validate *validator.Validate
	retry    shared.RetryPolicy
	now      func() time.Time
}

// NewService constructs a product service.
func NewService(logger *slog.Logger, repo Store, blobs blob.Store) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		blobs:    blobs,
		validate: validator.New(),
		retry:    shared.DefaultRetryPolicy,
		now:      time.Now,
	}
}

// Create adds one product to the merchant's catalog.
func (s *Service) Create(ctx context.Context, merchantID string, req CreateRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	if req.Price > MaxPrice {
		return nil, fmt.Errorf("create product: price above limit: %w", httpx.ErrValidation)
	}
	now := s.now().UTC()
	p := &Product{
		MerchantID:  merchantID,
		Name:        strings.TrimSpace(req.Name),
		Brand:       strings.TrimSpace(req.Brand),
		Price:       req.Price,
		Unit:        strings.TrimSpace(req.Unit),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// Get fetches one product scoped to the merchant.
func (s *Service) Get(ctx context.Context, merchantID string, id int64) (*Product, error) {
	return s.repo.Get(ctx, merchantID, id)
}

// List returns a page of the catalog plus pagination metadata.
func (s *Service) List(ctx context.Context, merchantID string, q ListQuery) ([]Product, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, merchantID, q)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(q.Page, q.PerPage, total), nil
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, merchantID string, id int64, req UpdateRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if req.Price != nil && *req.Price > MaxPrice {
		return nil, fmt.Errorf("update product: price above limit: %w", httpx.ErrValidation)
	}
	updates := make(map[string]any)
	setString := func(col string, val *string) {
		if val != nil {
			updates[col] = strings.TrimSpace(*val)
		}
	}
	setString("name", req.Name)
	setString("brand", req.Brand)
	setString("unit", req.Unit)
	setString("category", req.Category)
	setString("description", req.Description)
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if err := s.repo.UpdateFields(ctx, merchantID, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, merchantID, id)
}

// UploadImage stores a new product image, replacing any previous one.
func (s *Service) UploadImage(ctx context.Context, merchantID string, id int64, data []byte, filename, contentType string) (string, error) {
	p, err := s.repo.Get(ctx, merchantID, id)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("%s/%d%s", merchantID, id, ext)
	if err := s.blobs.Upload(ctx, imageBucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if err := s.repo.UpdateFields(ctx, merchantID, id, map[string]any{"image_key": key}); err != nil {
		return "", err
	}
	if p.StoredImage() && p.ImageKey != key {
		if err := s.blobs.Remove(ctx, imageBucket, []string{p.ImageKey}); err != nil {
			s.logger.Warn("failed to remove replaced image", slog.String("key", p.ImageKey), slog.Any("error", err))
		}
	}
	return s.blobs.PublicURL(imageBucket, key), nil
}

// Delete removes one product and its stored image.
func (s *Service) Delete(ctx context.Context, merchantID string, id int64) error {
	p, err := s.repo.Get(ctx, merchantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, merchantID, id); err != nil {
		return err
	}
	if p.StoredImage() {
		if err := s.blobs.Remove(ctx, imageBucket, []string{p.ImageKey}); err != nil {
			s.logger.Warn("failed to remove product image", slog.String("key", p.ImageKey), slog.Any("error", err))
		}
	}
	return nil
}

// GetAny fetches a product regardless of owner, for moderation.
func (s *Service) GetAny(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetAny(ctx, id)
}

// DeleteAny removes a product regardless of owner, for moderation.
func (s *Service) DeleteAny(ctx context.Context, id int64) error {
	p, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return err
	}
	return s.Delete(ctx, p.MerchantID, id)
}

// Count returns the total number of products on the platform.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// CountPerMerchant returns product totals keyed by merchant ID.
func (s *Service) CountPerMerchant(ctx context.Context) (map[string]int, error) {
	return s.repo.CountPerMerchant(ctx)
}

// BatchDeleteResult reports the outcome of a multi-select delete. A batch
// that exhausts its retries lands in FailedBatches; the remaining batches
// still run.
type BatchDeleteResult struct {
	Deleted       int       `json:"deleted"`
	FailedBatches [][]int64 `json:"failed_batches,omitempty"`
}

// BatchDelete removes the selected products in bounded batches with retry.
// Partial success is allowed and reported, never hidden.
func (s *Service) BatchDelete(ctx context.Context, merchantID string, ids []int64) (BatchDeleteResult, error) {
	var result BatchDeleteResult
	if len(ids) == 0 {
		return result, nil
	}
	catalog, err := s.repo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return result, err
	}
	imageByID := make(map[int64]string, len(catalog))
	for _, p := range catalog {
		if p.StoredImage() {
			imageByID[p.ID] = p.ImageKey
		}
	}

	var orphanKeys []string
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		err := s.retry.Retry(ctx, func(ctx context.Context) error {
			n, err := s.repo.DeleteBatch(ctx, merchantID, batch)
			if err == nil {
				result.Deleted += n
			}
			return err
		})
		if err != nil {
			s.logger.Error("product batch delete failed",
				slog.String("merchant_id", merchantID), slog.Int("from", start), slog.Int("to", end), slog.Any("error", err))
			result.FailedBatches = append(result.FailedBatches, batch)
			continue
		}
		for _, id := range batch {
			if key, ok := imageByID[id]; ok {
				orphanKeys = append(orphanKeys, key)
			}
		}
	}

	if len(orphanKeys) > 0 {
		if err := s.blobs.Remove(ctx, imageBucket, orphanKeys); err != nil {
			s.logger.Warn("failed to remove images of deleted products", slog.Any("error", err))
		}
	}
	s.logger.Info("products batch deleted",
		slog.String("merchant_id", merchantID), slog.Int("requested", len(ids)),
		slog.Int("deleted", result.Deleted), slog.Int("failed_batches", len(result.FailedBatches)))
	return result, nil
}

// ToJSON projects a product for API responses, substituting the sentinel
// image for products without one.
func (s *Service) ToJSON(p *Product) ProductJSON {
	imageURL := SentinelImageURL
	switch {
	case strings.HasPrefix(p.ImageKey, "http://"), strings.HasPrefix(p.ImageKey, "https://"):
		imageURL = p.ImageKey
	case p.ImageKey != "":
		imageURL = s.blobs.PublicURL(imageBucket, p.ImageKey)
	}
	return ProductJSON{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Price:       p.Price,
		Unit:        p.Unit,
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    imageURL,
		Incomplete:  p.Incomplete(),
		UpdatedAt:   p.UpdatedAt,
	}
}
