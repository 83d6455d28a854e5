// Package admin implements the operator surface: merchant approval and
// lifecycle, product moderation and the platform dashboard.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/pricescout/pricescout/internal/analytics"
	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/products"
)

const accessHistoryLimit = 20

// MerchantDirectory is the slice of the merchant service the admin needs.
type MerchantDirectory interface {
	Get(ctx context.Context, id string) (*merchants.Merchant, error)
	List(ctx context.Context) ([]merchants.Merchant, error)
	ListPending(ctx context.Context) ([]merchants.Merchant, error)
	CountByStatus(ctx context.Context) (map[merchants.Status]int, error)
	ListAccess(ctx context.Context, merchantID string, limit int) ([]merchants.AccessEntry, error)
	Approve(ctx context.Context, id string) (*merchants.Merchant, error)
	Reject(ctx context.Context, id string) error
	Block(ctx context.Context, id string) error
	Unblock(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ProductCatalog is the moderation surface over the product service.
type ProductCatalog interface {
	GetAny(ctx context.Context, id int64) (*products.Product, error)
	Update(ctx context.Context, merchantID string, id int64, req products.UpdateRequest) (*products.Product, error)
	DeleteAny(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountPerMerchant(ctx context.Context) (map[string]int, error)
}

// StatsProvider serves aggregated search analytics.
type StatsProvider interface {
	TopStats(ctx context.Context, limit int) (*analytics.Stats, error)
	Totals(ctx context.Context) (searches, clicks int64, err error)
}

// Dashboard is the landing view of the admin panel.
type Dashboard struct {
	MerchantsActive  int   `json:"merchants_active"`
	MerchantsPending int   `json:"merchants_pending"`
	MerchantsBlocked int   `json:"merchants_blocked"`
	Products         int   `json:"products"`
	Searches         int64 `json:"searches"`
	Clicks           int64 `json:"clicks"`
}

// MerchantOverview is one row of the merchant list.
type MerchantOverview struct {
	Merchant merchants.MerchantJSON `json:"merchant"`
	Products int                    `json:"products"`
}

// MerchantDetail adds recent access history to the overview.
type MerchantDetail struct {
	MerchantOverview
	AccessHistory []merchants.AccessEntry `json:"access_history"`
}

// Service wires the admin operations together.
type Service struct {
	logger    *slog.Logger
	merchants MerchantDirectory
	products  ProductCatalog
	stats     StatsProvider
	token     string
	now       func() time.Time
}

// NewService constructs the admin service. An empty token disables admin
// access entirely.
func NewService(logger *slog.Logger, m MerchantDirectory, p ProductCatalog, stats StatsProvider, token string) *Service {
	return &Service{logger: logger, merchants: m, products: p, stats: stats, token: token, now: time.Now}
}

// Login checks the presented token against the configured one.
func (s *Service) Login(token string) error {
	if s.token == "" {
		return httpx.ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return httpx.ErrUnauthorized
	}
	return nil
}

// Dashboard returns the platform-wide counters.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	byStatus, err := s.merchants.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	productCount, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	searches, clicks, err := s.stats.Totals(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		MerchantsActive:  byStatus[merchants.StatusActive],
		MerchantsPending: byStatus[merchants.StatusPending],
		MerchantsBlocked: byStatus[merchants.StatusBlocked],
		Products:         productCount,
		Searches:         searches,
		Clicks:           clicks,
	}, nil
}

// Merchants lists every live merchant with its catalog size.
func (s *Service) Merchants(ctx context.Context) ([]MerchantOverview, error) {
	list, err := s.merchants.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.products.CountPerMerchant(ctx)
	if err != nil {
		return nil, err
	}
	overviews := make([]MerchantOverview, 0, len(list))
	for i := range list {
		overviews = append(overviews, MerchantOverview{
			Merchant: merchants.ToJSON(&list[i], s.now()),
			Products: counts[list[i].ID],
		})
	}
	return overviews, nil
}

// PendingMerchants lists signups awaiting approval.
func (s *Service) PendingMerchants(ctx context.Context) ([]merchants.MerchantJSON, error) {
	list, err := s.merchants.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]merchants.MerchantJSON, 0, len(list))
	for i := range list {
		out = append(out, merchants.ToJSON(&list[i], s.now()))
	}
	return out, nil
}

// Merchant returns one merchant with catalog size and recent accesses.
func (s *Service) Merchant(ctx context.Context, id string) (*MerchantDetail, error) {
	m, err := s.merchants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.products.CountPerMerchant(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.merchants.ListAccess(ctx, id, accessHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &MerchantDetail{
		MerchantOverview: MerchantOverview{
			Merchant: merchants.ToJSON(m, s.now()),
			Products: counts[m.ID],
		},
		AccessHistory: history,
	}, nil
}

// Approve moves a pending merchant live.
func (s *Service) Approve(ctx context.Context, id string) (*merchants.Merchant, error) {
	return s.merchants.Approve(ctx, id)
}

// Reject discards a pending signup.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.merchants.Reject(ctx, id)
}

// Block suspends a merchant without touching its data.
func (s *Service) Block(ctx context.Context, id string) error {
	return s.merchants.Block(ctx, id)
}

// Unblock reinstates a suspended merchant.
func (s *Service) Unblock(ctx context.Context, id string) error {
	return s.merchants.Unblock(ctx, id)
}

// DeleteMerchant runs the full cascade delete.
func (s *Service) DeleteMerchant(ctx context.Context, id string) error {
	return s.merchants.Delete(ctx, id)
}

// SearchStats exposes the analytics aggregates.
func (s *Service) SearchStats(ctx context.Context, limit int) (*analytics.Stats, error) {
	return s.stats.TopStats(ctx, limit)
}
