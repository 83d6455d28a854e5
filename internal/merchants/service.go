package merchants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pricescout/pricescout/internal/geo"
	"github.com/pricescout/pricescout/internal/platform/blob"
	"github.com/pricescout/pricescout/internal/shared"
)

// ErrAccountBlocked is returned when a blocked merchant tries to start a
// session.
var ErrAccountBlocked = errors.New("account blocked")

// deleteBatchSize bounds how many products a single delete statement
// touches during account removal.
const deleteBatchSize = 500

// photoBucket is the blob bucket holding merchant profile photos.
const photoBucket = "merchants"

// Store is the persistence surface the service needs.
type Store interface {
	CreatePending(ctx context.Context, m *Merchant) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetPending(ctx context.Context, id string) (*Merchant, error)
	ListPending(ctx context.Context) ([]Merchant, error)
	Approve(ctx context.Context, id string) (*Merchant, error)
	DeletePending(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Merchant, error)
	GetByAuthUser(ctx context.Context, authUserID string) (*Merchant, error)
	List(ctx context.Context) ([]Merchant, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateProfile(ctx context.Context, id string, updates map[string]any) error
	Delete(ctx context.Context, id string) error
	RecordAccess(ctx context.Context, entry AccessEntry) error
	ListAccess(ctx context.Context, merchantID string, limit int) ([]AccessEntry, error)
	DeleteAccess(ctx context.Context, merchantID string) error
}

// ProductCatalog is the slice of the products module the cascade delete
// needs.
type ProductCatalog interface {
	ListIDs(ctx context.Context, merchantID string) ([]int64, error)
	ListImageKeys(ctx context.Context, merchantID string) ([]string, error)
	DeleteBatch(ctx context.Context, merchantID string, ids []int64) (int, error)
}

// Service implements merchant account business logic.
type Service struct {
	logger   *slog.Logger
	repo     Store
	products ProductCatalog
	blobs    blob.Store
	validate *validator.Validate
	retry    shared.RetryPolicy
	now      func() time.Time
}

// NewService constructs a merchant service.
func NewService(logger *slog.Logger, repo Store, products ProductCatalog, blobs blob.Store) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
		blobs:    blobs,
		validate: validator.New(),
		retry:    shared.DefaultRetryPolicy,
		now:      time.Now,
	}
}

// Signup queues a new merchant for approval. The email must be unused
// across both the live and pending tables.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Merchant, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	taken, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	now := s.now().UTC()
	m := &Merchant{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		SecondaryEmail: strings.TrimSpace(req.SecondaryEmail),
		PasswordHash:   string(hash),
		WhatsApp:       strings.TrimSpace(req.WhatsApp),
		Description:    strings.TrimSpace(req.Description),
		Street:         strings.TrimSpace(req.Street),
		Number:         strings.TrimSpace(req.Number),
		Complement:     strings.TrimSpace(req.Complement),
		City:           strings.TrimSpace(req.City),
		State:          strings.ToUpper(strings.TrimSpace(req.State)),
		PostalCode:     strings.TrimSpace(req.PostalCode),
		Delivers:       req.Delivers,
		Status:         StatusPending,
		RegisteredAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Latitude != nil {
		m.Latitude = geo.ParseCoord(*req.Latitude)
	}
	if req.Longitude != nil {
		m.Longitude = geo.ParseCoord(*req.Longitude)
	}

	if err := s.repo.CreatePending(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("merchant signup queued", slog.String("merchant_id", m.ID), slog.String("city", m.City))
	return m, nil
}

// Authenticate resolves the external auth identity to an approved merchant
// and records the access. Blocked accounts are rejected.
func (s *Service) Authenticate(ctx context.Context, authUserID, ip, userAgent string) (*Merchant, error) {
	m, err := s.repo.GetByAuthUser(ctx, authUserID)
	if err != nil {
		return nil, err
	}
	if m.Status == StatusBlocked {
		return nil, ErrAccountBlocked
	}
	entry := AccessEntry{MerchantID: m.ID, At: s.now().UTC(), IP: ip, UserAgent: userAgent}
	if err := s.repo.RecordAccess(ctx, entry); err != nil {
		s.logger.Warn("failed to record merchant access", slog.String("merchant_id", m.ID), slog.Any("error", err))
	}
	return m, nil
}

// Get fetches an approved merchant.
func (s *Service) Get(ctx context.Context, id string) (*Merchant, error) {
	return s.repo.Get(ctx, id)
}

// List returns all merchants for the admin panel.
func (s *Service) List(ctx context.Context) ([]Merchant, error) {
	return s.repo.List(ctx)
}

// ListPending returns the approval queue.
func (s *Service) ListPending(ctx context.Context) ([]Merchant, error) {
	return s.repo.ListPending(ctx)
}

// CountByStatus aggregates accounts per lifecycle state.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// ListAccess returns recent logins for a merchant.
func (s *Service) ListAccess(ctx context.Context, merchantID string, limit int) ([]AccessEntry, error) {
	return s.repo.ListAccess(ctx, merchantID, limit)
}

// Approve activates a pending signup.
func (s *Service) Approve(ctx context.Context, id string) (*Merchant, error) {
	m, err := s.repo.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("merchant approved", slog.String("merchant_id", m.ID))
	return m, nil
}

// Reject drops a pending signup.
func (s *Service) Reject(ctx context.Context, id string) error {
	if err := s.repo.DeletePending(ctx, id); err != nil {
		return err
	}
	s.logger.Info("merchant signup rejected", slog.String("merchant_id", id))
	return nil
}

// Block suspends an approved merchant. Its catalog disappears from search
// because search only considers active accounts.
func (s *Service) Block(ctx context.Context, id string) error {
	return s.repo.UpdateStatus(ctx, id, StatusBlocked)
}

// Unblock reactivates a suspended merchant.
func (s *Service) Unblock(ctx context.Context, id string) error {
	return s.repo.UpdateStatus(ctx, id, StatusActive)
}

// UpdateProfile applies a partial profile edit and returns the fresh
// record.
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Merchant, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	updates := make(map[string]any)
	setString := func(col string, val *string) {
		if val != nil {
			updates[col] = strings.TrimSpace(*val)
		}
	}
	setString("name", req.Name)
	setString("secondary_email", req.SecondaryEmail)
	setString("whatsapp", req.WhatsApp)
	setString("street", req.Street)
	setString("number", req.Number)
	setString("complement", req.Complement)
	setString("city", req.City)
	setString("postal_code", req.PostalCode)
	setString("description", req.Description)
	if req.State != nil {
		updates["state"] = strings.ToUpper(strings.TrimSpace(*req.State))
	}
	if req.Delivers != nil {
		updates["delivers"] = *req.Delivers
	}
	if req.Latitude != nil {
		updates["latitude"] = geo.ParseCoord(*req.Latitude)
	}
	if req.Longitude != nil {
		updates["longitude"] = geo.ParseCoord(*req.Longitude)
	}
	if req.Schedule != nil {
		data, err := json.Marshal(req.Schedule)
		if err != nil {
			return nil, fmt.Errorf("update profile: encode schedule: %w", err)
		}
		updates["schedule"] = data
	}
	if req.Socials != nil {
		data, err := json.Marshal(req.Socials)
		if err != nil {
			return nil, fmt.Errorf("update profile: encode socials: %w", err)
		}
		updates["socials"] = data
	}
	if err := s.repo.UpdateProfile(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// UpdatePhoto stores a new profile photo and points the account at it.
func (s *Service) UpdatePhoto(ctx context.Context, id string, data []byte, filename, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := id + ext
	if err := s.blobs.Upload(ctx, photoBucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("update photo: %w", err)
	}
	url := s.blobs.PublicURL(photoBucket, key)
	if err := s.repo.UpdateProfile(ctx, id, map[string]any{"photo_url": url}); err != nil {
		return "", err
	}
	return url, nil
}

// Delete removes a merchant account and everything hanging off it: the
// catalog in bounded batches with retry, stored images, access history and
// finally the account row. A batch that keeps failing after all retries
// aborts the cascade so the account is not orphaned half-deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ids, err := s.products.ListIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("delete merchant: list products: %w", err)
	}
	imageKeys, err := s.products.ListImageKeys(ctx, id)
	if err != nil {
		return fmt.Errorf("delete merchant: list product images: %w", err)
	}

	failedBatches := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		err := s.retry.Retry(ctx, func(ctx context.Context) error {
			_, err := s.products.DeleteBatch(ctx, id, batch)
			return err
		})
		if err != nil {
			// Keep going so independent batches still get cleaned up, but
			// the account itself must survive a partial cascade.
			s.logger.Error("product batch delete failed during account removal",
				slog.String("merchant_id", id), slog.Int("from", start), slog.Int("to", end), slog.Any("error", err))
			failedBatches++
		}
	}
	if failedBatches > 0 {
		return fmt.Errorf("delete merchant: %d product batches failed", failedBatches)
	}

	if len(imageKeys) > 0 {
		if err := s.blobs.Remove(ctx, "products", imageKeys); err != nil {
			s.logger.Warn("failed to remove product images", slog.String("merchant_id", id), slog.Any("error", err))
		}
	}
	if m.PhotoURL != "" {
		if key := path.Base(m.PhotoURL); key != "" && key != "." {
			if err := s.blobs.Remove(ctx, photoBucket, []string{key}); err != nil {
				s.logger.Warn("failed to remove profile photo", slog.String("merchant_id", id), slog.Any("error", err))
			}
		}
	}

	if err := s.repo.DeleteAccess(ctx, id); err != nil {
		return fmt.Errorf("delete merchant: access history: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("merchant deleted", slog.String("merchant_id", id), slog.Int("products", len(ids)))
	return nil
}
