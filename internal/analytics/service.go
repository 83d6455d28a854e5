package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricescout/pricescout/internal/shared"
)

const defaultStatsLimit = 20

// Store is the persistence surface the service needs.
type Store interface {
	IncrementSearch(ctx context.Context, term string, productID int64, at time.Time) error
	IncrementClick(ctx context.Context, productID int64, name string, at time.Time) error
	Totals(ctx context.Context) (searches, clicks int64, err error)
	TopSearches(ctx context.Context, limit int) ([]SearchTermStat, error)
	TopClicks(ctx context.Context, limit int) ([]ProductClickStat, error)
}

// Service aggregates events into counters and serves the admin view.
type Service struct {
	logger *slog.Logger
	repo   Store
	now    func() time.Time
}

// NewService constructs an analytics service.
func NewService(logger *slog.Logger, repo Store) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// CountSearch bumps one counter per matched product, all under the folded
// term so accent and case variants share rows. Empty terms and invalid
// product IDs are dropped.
func (s *Service) CountSearch(ctx context.Context, term string, productIDs []int64) error {
	folded := shared.Fold(term)
	if folded == "" {
		return nil
	}
	at := s.now()
	for _, id := range productIDs {
		if id <= 0 {
			continue
		}
		if err := s.repo.IncrementSearch(ctx, folded, id, at); err != nil {
			return err
		}
	}
	return nil
}

// CountClick bumps the click counter for a product.
func (s *Service) CountClick(ctx context.Context, productID int64, name string) error {
	if productID <= 0 {
		return nil
	}
	return s.repo.IncrementClick(ctx, productID, name, s.now())
}

// TopStats returns the admin dashboard aggregates. A non-positive limit
// falls back to the default.
func (s *Service) TopStats(ctx context.Context, limit int) (*Stats, error) {
	if limit <= 0 {
		limit = defaultStatsLimit
	}
	totalSearches, totalClicks, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	searches, err := s.repo.TopSearches(ctx, limit)
	if err != nil {
		return nil, err
	}
	clicks, err := s.repo.TopClicks(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalSearches: totalSearches,
		TotalClicks:   totalClicks,
		TopSearches:   searches,
		TopClicks:     clicks,
	}, nil
}

// Totals returns the platform-wide search and click sums.
func (s *Service) Totals(ctx context.Context) (searches, clicks int64, err error) {
	return s.repo.Totals(ctx)
}
