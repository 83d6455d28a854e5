package merchants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricescout/pricescout/internal/shared"
)

// Repository provides PostgreSQL backed persistence for merchant accounts.
// Pending signups live in merchants_pending until approval moves them to
// merchants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const merchantColumns = `id, auth_user_id, name, email, secondary_email, password_hash,
	whatsapp, description, street, number, complement, city, state, postal_code,
	latitude, longitude, delivers, photo_url, schedule, socials, status,
	registered_at, created_at, updated_at`

// CreatePending inserts a signup into the approval queue.
func (r *Repository) CreatePending(ctx context.Context, m *Merchant) error {
	schedule, socials, err := encodeJSONFields(m)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO merchants_pending (`+merchantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		m.ID, m.AuthUserID, m.Name, m.Email, m.SecondaryEmail, m.PasswordHash,
		m.WhatsApp, m.Description, m.Street, m.Number, m.Complement, m.City, m.State, m.PostalCode,
		m.Latitude, m.Longitude, m.Delivers, m.PhotoURL, schedule, socials, m.Status,
		m.RegisteredAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicateEmail
		}
		return fmt.Errorf("merchants: create pending: %w", err)
	}
	return nil
}

// EmailExists reports whether an email is taken in either table.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM merchants WHERE lower(email) = lower($1))
		    OR EXISTS (SELECT 1 FROM merchants_pending WHERE lower(email) = lower($1))`,
		email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("merchants: email exists: %w", err)
	}
	return exists, nil
}

// GetPending fetches one pending signup.
func (r *Repository) GetPending(ctx context.Context, id string) (*Merchant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants_pending WHERE id = $1`, id)
	return scanMerchant(row)
}

// ListPending returns the approval queue, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]Merchant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+merchantColumns+` FROM merchants_pending ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("merchants: list pending: %w", err)
	}
	return collectMerchants(rows)
}

// Approve moves a pending signup into the live table. The copy and the
// queue removal happen in one transaction.
func (r *Repository) Approve(ctx context.Context, id string) (*Merchant, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("merchants: approve begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO merchants (`+merchantColumns+`)
		SELECT id, auth_user_id, name, email, secondary_email, password_hash,
			whatsapp, description, street, number, complement, city, state, postal_code,
			latitude, longitude, delivers, photo_url, schedule, socials, 'active',
			registered_at, created_at, now()
		FROM merchants_pending WHERE id = $1
		RETURNING `+merchantColumns, id)
	m, err := scanMerchant(row)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM merchants_pending WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("merchants: approve cleanup: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("merchants: approve commit: %w", err)
	}
	return m, nil
}

// DeletePending rejects a signup.
func (r *Repository) DeletePending(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM merchants_pending WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("merchants: delete pending: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get fetches an approved merchant by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Merchant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
	return scanMerchant(row)
}

// GetByAuthUser fetches an approved merchant by its external auth identity.
func (r *Repository) GetByAuthUser(ctx context.Context, authUserID string) (*Merchant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE auth_user_id = $1`, authUserID)
	return scanMerchant(row)
}

// List returns all merchants ordered by name.
func (r *Repository) List(ctx context.Context) ([]Merchant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+merchantColumns+` FROM merchants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("merchants: list: %w", err)
	}
	return collectMerchants(rows)
}

// CountByStatus aggregates account counts for the admin dashboard. Pending
// signups are counted from their own table.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts := make(map[Status]int)
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM merchants GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("merchants: count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("merchants: count by status scan: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("merchants: count by status rows: %w", err)
	}
	var pending int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM merchants_pending`).Scan(&pending); err != nil {
		return nil, fmt.Errorf("merchants: count pending: %w", err)
	}
	counts[StatusPending] = pending
	return counts, nil
}

// UpdateStatus flips the lifecycle state of an approved merchant.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE merchants SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("merchants: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateProfile applies a partial update built by the service layer.
func (r *Repository) UpdateProfile(ctx context.Context, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	args = append(args, id)
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = now()")
	query := `UPDATE merchants SET ` + strings.Join(set, ", ") + ` WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("merchants: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an approved merchant row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM merchants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("merchants: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordAccess appends a login record.
func (r *Repository) RecordAccess(ctx context.Context, entry AccessEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO merchant_access_history (merchant_id, at, ip, user_agent)
		VALUES ($1, $2, $3, $4)`,
		entry.MerchantID, entry.At, entry.IP, entry.UserAgent)
	if err != nil {
		return fmt.Errorf("merchants: record access: %w", err)
	}
	return nil
}

// ListAccess returns the most recent login records for a merchant.
func (r *Repository) ListAccess(ctx context.Context, merchantID string, limit int) ([]AccessEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT merchant_id, at, ip, user_agent
		FROM merchant_access_history
		WHERE merchant_id = $1 ORDER BY at DESC LIMIT $2`, merchantID, limit)
	if err != nil {
		return nil, fmt.Errorf("merchants: list access: %w", err)
	}
	defer rows.Close()
	var entries []AccessEntry
	for rows.Next() {
		var e AccessEntry
		if err := rows.Scan(&e.MerchantID, &e.At, &e.IP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("merchants: list access scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("merchants: list access rows: %w", err)
	}
	return entries, nil
}

// DeleteAccess wipes the login history for a merchant.
func (r *Repository) DeleteAccess(ctx context.Context, merchantID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM merchant_access_history WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return fmt.Errorf("merchants: delete access: %w", err)
	}
	return nil
}

func encodeJSONFields(m *Merchant) (schedule, socials []byte, err error) {
	if m.Schedule != nil {
		if schedule, err = json.Marshal(m.Schedule); err != nil {
			return nil, nil, fmt.Errorf("merchants: encode schedule: %w", err)
		}
	}
	if m.Socials != nil {
		if socials, err = json.Marshal(m.Socials); err != nil {
			return nil, nil, fmt.Errorf("merchants: encode socials: %w", err)
		}
	}
	return schedule, socials, nil
}

func scanMerchant(row pgx.Row) (*Merchant, error) {
	var m Merchant
	var schedule, socials []byte
	err := row.Scan(
		&m.ID, &m.AuthUserID, &m.Name, &m.Email, &m.SecondaryEmail, &m.PasswordHash,
		&m.WhatsApp, &m.Description, &m.Street, &m.Number, &m.Complement, &m.City, &m.State, &m.PostalCode,
		&m.Latitude, &m.Longitude, &m.Delivers, &m.PhotoURL, &schedule, &socials, &m.Status,
		&m.RegisteredAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("merchants: scan: %w", err)
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &m.Schedule); err != nil {
			return nil, fmt.Errorf("merchants: decode schedule: %w", err)
		}
	}
	if len(socials) > 0 {
		if err := json.Unmarshal(socials, &m.Socials); err != nil {
			return nil, fmt.Errorf("merchants: decode socials: %w", err)
		}
	}
	return &m, nil
}

func collectMerchants(rows pgx.Rows) ([]Merchant, error) {
	defer rows.Close()
	var out []Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("merchants: rows: %w", err)
	}
	return out, nil
}
