package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists counters in PostgreSQL. Increments are upserts, so
// replaying an event stream only ever inflates counts, never corrupts rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncrementSearch bumps the counter for one (term, product) pair. The
// caller normalizes the term so accent variants share one row.
func (r *Repository) IncrementSearch(ctx context.Context, term string, productID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO search_term_stats (term, product_id, count, last_seen)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (term, product_id)
		DO UPDATE SET count = search_term_stats.count + 1, last_seen = EXCLUDED.last_seen`,
		term, productID, at)
	if err != nil {
		return fmt.Errorf("analytics: increment search: %w", err)
	}
	return nil
}

// IncrementClick bumps the counter for a product. The name is refreshed on
// every click so renamed products stay readable in reports.
func (r *Repository) IncrementClick(ctx context.Context, productID int64, name string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_click_stats (product_id, name, count, last_seen)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (product_id)
		DO UPDATE SET count = product_click_stats.count + 1,
			name = EXCLUDED.name, last_seen = EXCLUDED.last_seen`,
		productID, name, at)
	if err != nil {
		return fmt.Errorf("analytics: increment click: %w", err)
	}
	return nil
}

// Totals returns the platform-wide counter sums.
func (r *Repository) Totals(ctx context.Context) (searches, clicks int64, err error) {
	if err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(count), 0) FROM search_term_stats`).Scan(&searches); err != nil {
		return 0, 0, fmt.Errorf("analytics: total searches: %w", err)
	}
	if err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(count), 0) FROM product_click_stats`).Scan(&clicks); err != nil {
		return 0, 0, fmt.Errorf("analytics: total clicks: %w", err)
	}
	return searches, clicks, nil
}

// TopSearches returns the most frequent terms, highest count first.
// Rows are folded across products so the list stays term shaped.
func (r *Repository) TopSearches(ctx context.Context, limit int) ([]SearchTermStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT term, SUM(count) AS count, MAX(last_seen) AS last_seen
		FROM search_term_stats
		GROUP BY term
		ORDER BY count DESC, last_seen DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top searches: %w", err)
	}
	defer rows.Close()

	var stats []SearchTermStat
	for rows.Next() {
		var s SearchTermStat
		if err := rows.Scan(&s.Term, &s.Count, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("analytics: scan search stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// TopClicks returns the most opened products, highest count first.
func (r *Repository) TopClicks(ctx context.Context, limit int) ([]ProductClickStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, name, count, last_seen FROM product_click_stats
		ORDER BY count DESC, last_seen DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top clicks: %w", err)
	}
	defer rows.Close()

	var stats []ProductClickStat
	for rows.Next() {
		var s ProductClickStat
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Count, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("analytics: scan click stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
