package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IPListRepository handles the IP blocklist and whitelist tables
type IPListRepository struct {
	pool *pgxpool.Pool
}

// NewIPListRepository creates a new IPListRepository
func NewIPListRepository(db *database.DB) *IPListRepository {
	return &IPListRepository{pool: db.Pool}
}

const blockedIPColumns = `id, ip_address, reason, blocked_by, blocked_at, expires_at, is_active`

const whitelistColumns = `id, ip_address, description, added_by, added_at, is_active`

func scanBlockedIPRow(row rowScanner) (*models.BlockedIP, error) {
	var b models.BlockedIP

	err := row.Scan(&b.ID, &b.IPAddress, &b.Reason, &b.BlockedBy, &b.BlockedAt, &b.ExpiresAt, &b.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &b, nil
}

func scanWhitelistRow(row rowScanner) (*models.WhitelistedIP, error) {
	var w models.WhitelistedIP

	err := row.Scan(&w.ID, &w.IPAddress, &w.Description, &w.AddedBy, &w.AddedAt, &w.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &w, nil
}

// IsBlocked matches an active row that is permanent or not yet expired
func (r *IPListRepository) IsBlocked(ctx context.Context, ip string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocked_ips
			WHERE ip_address = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		)
	`

	var blocked bool
	if err := r.pool.QueryRow(ctx, query, ip, now).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check ip blocklist: %w", err)
	}

	return blocked, nil
}

// UpsertBlock sets an active block for the IP, reactivating an existing row in place
func (r *IPListRepository) UpsertBlock(ctx context.Context, b *models.BlockedIP) (*models.BlockedIP, error) {
	query := `
		INSERT INTO blocked_ips (ip_address, reason, blocked_by, blocked_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (ip_address) DO UPDATE
		SET reason = EXCLUDED.reason,
			blocked_by = EXCLUDED.blocked_by,
			blocked_at = EXCLUDED.blocked_at,
			expires_at = EXCLUDED.expires_at,
			is_active = TRUE
		RETURNING ` + blockedIPColumns

	return scanBlockedIPRow(r.pool.QueryRow(ctx, query, b.IPAddress, b.Reason, b.BlockedBy, b.BlockedAt, b.ExpiresAt))
}

// DeactivateBlock lifts the block of an IP
func (r *IPListRepository) DeactivateBlock(ctx context.Context, ip string) (int64, error) {
	query := `UPDATE blocked_ips SET is_active = FALSE WHERE ip_address = $1 AND is_active`

	result, err := r.pool.Exec(ctx, query, ip)
	if err != nil {
		return 0, fmt.Errorf("failed to unblock ip: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListBlocked returns active blocks, newest first
func (r *IPListRepository) ListBlocked(ctx context.Context) ([]*models.BlockedIP, error) {
	query := `SELECT ` + blockedIPColumns + ` FROM blocked_ips WHERE is_active ORDER BY blocked_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked ips: %w", err)
	}
	defer rows.Close()

	blocks := make([]*models.BlockedIP, 0)
	for rows.Next() {
		b, err := scanBlockedIPRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blocked ip: %w", err)
		}
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocked ips: %w", err)
	}

	return blocks, nil
}

// IsWhitelisted reports whether an active whitelist entry exists for the IP
func (r *IPListRepository) IsWhitelisted(ctx context.Context, ip string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM whitelisted_ips WHERE ip_address = $1 AND is_active)`

	var whitelisted bool
	if err := r.pool.QueryRow(ctx, query, ip).Scan(&whitelisted); err != nil {
		return false, fmt.Errorf("failed to check ip whitelist: %w", err)
	}

	return whitelisted, nil
}

// UpsertWhitelist sets an active whitelist entry for the IP
func (r *IPListRepository) UpsertWhitelist(ctx context.Context, w *models.WhitelistedIP) (*models.WhitelistedIP, error) {
	query := `
		INSERT INTO whitelisted_ips (ip_address, description, added_by, added_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (ip_address) DO UPDATE
		SET description = EXCLUDED.description,
			added_by = EXCLUDED.added_by,
			added_at = EXCLUDED.added_at,
			is_active = TRUE
		RETURNING ` + whitelistColumns

	return scanWhitelistRow(r.pool.QueryRow(ctx, query, w.IPAddress, w.Description, w.AddedBy, w.AddedAt))
}

// DeactivateWhitelist removes the IP from the whitelist
func (r *IPListRepository) DeactivateWhitelist(ctx context.Context, ip string) (int64, error) {
	query := `UPDATE whitelisted_ips SET is_active = FALSE WHERE ip_address = $1 AND is_active`

	result, err := r.pool.Exec(ctx, query, ip)
	if err != nil {
		return 0, fmt.Errorf("failed to remove ip from whitelist: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListWhitelisted returns active whitelist entries, newest first
func (r *IPListRepository) ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error) {
	query := `SELECT ` + whitelistColumns + ` FROM whitelisted_ips WHERE is_active ORDER BY added_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query whitelist: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.WhitelistedIP, 0)
	for rows.Next() {
		w, err := scanWhitelistRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan whitelist entry: %w", err)
		}
		entries = append(entries, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating whitelist: %w", err)
	}

	return entries, nil
}
