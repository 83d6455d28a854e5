// Package search implements the consumer-facing product listing: filter,
// distance resolution and ranking over the catalogs of active merchants.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/shared"
)

// CatalogItem is one product joined with its merchant, the unit the
// ranking pipeline works on.
type CatalogItem struct {
	Product  products.Product
	Merchant merchants.Merchant
}

// Repository reads the searchable catalog from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const catalogQuery = `
	SELECT p.id, p.merchant_id, p.name, p.brand, p.price, p.unit, p.category,
		p.description, p.image_key, p.created_at, p.updated_at,
		m.id, m.name, m.city, m.state, m.latitude, m.longitude,
		m.delivers, m.schedule, m.whatsapp
	FROM products p
	JOIN merchants m ON m.id = p.merchant_id
	WHERE m.status = 'active'`

// ListActiveCatalog returns every product of every active merchant.
// Filtering happens in the service because term matching is
// accent-insensitive.
func (r *Repository) ListActiveCatalog(ctx context.Context) ([]CatalogItem, error) {
	rows, err := r.pool.Query(ctx, catalogQuery)
	if err != nil {
		return nil, fmt.Errorf("search: list catalog: %w", err)
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: rows: %w", err)
	}
	return items, nil
}

// GetCatalogItem fetches one product with its merchant, active merchants
// only.
func (r *Repository) GetCatalogItem(ctx context.Context, productID int64) (*CatalogItem, error) {
	row := r.pool.QueryRow(ctx, catalogQuery+` AND p.id = $1`, productID)
	item, err := scanCatalogItem(row)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanCatalogItem(row pgx.Row) (*CatalogItem, error) {
	var item CatalogItem
	var schedule []byte
	err := row.Scan(
		&item.Product.ID, &item.Product.MerchantID, &item.Product.Name, &item.Product.Brand,
		&item.Product.Price, &item.Product.Unit, &item.Product.Category,
		&item.Product.Description, &item.Product.ImageKey, &item.Product.CreatedAt, &item.Product.UpdatedAt,
		&item.Merchant.ID, &item.Merchant.Name, &item.Merchant.City, &item.Merchant.State,
		&item.Merchant.Latitude, &item.Merchant.Longitude,
		&item.Merchant.Delivers, &schedule, &item.Merchant.WhatsApp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("search: scan: %w", err)
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &item.Merchant.Schedule); err != nil {
			return nil, fmt.Errorf("search: decode schedule: %w", err)
		}
	}
	return &item, nil
}
