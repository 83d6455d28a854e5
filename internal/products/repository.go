package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricescout/pricescout/internal/shared"
)

// Repository provides PostgreSQL backed persistence for catalog entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, merchant_id, name, brand, price, unit, category, description, image_key, created_at, updated_at`

// sortColumns whitelists the columns the panel may order by.
var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Create inserts one product and returns its ID.
func (r *Repository) Create(ctx context.Context, p *Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (merchant_id, name, brand, price, unit, category, description, image_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		p.MerchantID, p.Name, p.Brand, p.Price, p.Unit, p.Category, p.Description, p.ImageKey,
		p.CreatedAt, p.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("products: create: %w", err)
	}
	return id, nil
}

// InsertBatch inserts many products in one round trip. Used by the catalog
// importer after validation.
func (r *Repository) InsertBatch(ctx context.Context, items []Product) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range items {
		batch.Queue(`
			INSERT INTO products (merchant_id, name, brand, price, unit, category, description, image_key, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.MerchantID, p.Name, p.Brand, p.Price, p.Unit, p.Category, p.Description, p.ImageKey,
			p.CreatedAt, p.UpdatedAt)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("products: insert batch: %w", err)
		}
	}
	return nil
}

// Get fetches one product scoped to its merchant.
func (r *Repository) Get(ctx context.Context, merchantID string, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	return scanProduct(row)
}

// GetAny fetches one product regardless of owner. Used by search and the
// admin panel.
func (r *Repository) GetAny(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// List returns a page of a merchant's catalog plus the total match count.
func (r *Repository) List(ctx context.Context, merchantID string, q ListQuery) ([]Product, int, error) {
	where := []string{"merchant_id = $1"}
	args := []any{merchantID}
	if s := strings.TrimSpace(q.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR brand ILIKE $%d)", len(args), len(args)))
	}
	if q.IncompleteOnly {
		where = append(where, "(image_key = '' OR description = '' OR category = '')")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}

	order := "name"
	if col, ok := sortColumns[q.SortBy]; ok {
		order = col
	}
	dir := "ASC"
	if strings.EqualFold(q.SortDir, "desc") {
		dir = "DESC"
	}
	pag := shared.NewPagination(q.Page, q.PerPage, total)
	args = append(args, pag.PerPage, pag.Offset())
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		productColumns, cond, order, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("products: list: %w", err)
	}
	items, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByMerchant returns the whole catalog of one merchant. The importer
// uses it for duplicate checks and update matching.
func (r *Repository) ListByMerchant(ctx context.Context, merchantID string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE merchant_id = $1 ORDER BY id`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("products: list by merchant: %w", err)
	}
	return collectProducts(rows)
}

// ListIDs returns all product IDs of one merchant.
func (r *Repository) ListIDs(ctx context.Context, merchantID string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE merchant_id = $1 ORDER BY id`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("products: list ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("products: list ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products: list ids rows: %w", err)
	}
	return ids, nil
}

// ListImageKeys returns the stored image keys of one merchant's catalog.
func (r *Repository) ListImageKeys(ctx context.Context, merchantID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT image_key FROM products
		WHERE merchant_id = $1 AND image_key <> '' AND image_key NOT LIKE 'http%'`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("products: list image keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("products: list image keys scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products: list image keys rows: %w", err)
	}
	return keys, nil
}

// UpdateFields applies a partial update scoped to the owning merchant.
func (r *Repository) UpdateFields(ctx context.Context, merchantID string, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates)+1)
	args := []any{id, merchantID}
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = now()")
	query := `UPDATE products SET ` + strings.Join(set, ", ") + ` WHERE id = $1 AND merchant_id = $2`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("products: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes one product scoped to its merchant.
func (r *Repository) Delete(ctx context.Context, merchantID string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return fmt.Errorf("products: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteBatch removes up to one batch of products and reports how many
// rows went away. IDs not owned by the merchant are ignored.
func (r *Repository) DeleteBatch(ctx context.Context, merchantID string, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE merchant_id = $1 AND id = ANY($2)`, merchantID, ids)
	if err != nil {
		return 0, fmt.Errorf("products: delete batch: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the total number of products. Used by the admin dashboard.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("products: count all: %w", err)
	}
	return n, nil
}

// CountPerMerchant returns catalog sizes keyed by merchant ID.
func (r *Repository) CountPerMerchant(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT merchant_id, count(*) FROM products GROUP BY merchant_id`)
	if err != nil {
		return nil, fmt.Errorf("products: count per merchant: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var merchantID string
		var n int
		if err := rows.Scan(&merchantID, &n); err != nil {
			return nil, fmt.Errorf("products: count per merchant scan: %w", err)
		}
		counts[merchantID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products: count per merchant rows: %w", err)
	}
	return counts, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.MerchantID, &p.Name, &p.Brand, &p.Price, &p.Unit,
		&p.Category, &p.Description, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("products: scan: %w", err)
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products: rows: %w", err)
	}
	return out, nil
}
