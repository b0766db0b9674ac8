package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockedUserRepository handles the account blocklist
type BlockedUserRepository struct {
	pool *pgxpool.Pool
}

// NewBlockedUserRepository creates a new BlockedUserRepository
func NewBlockedUserRepository(db *database.DB) *BlockedUserRepository {
	return &BlockedUserRepository{pool: db.Pool}
}

const blockedUserColumns = `id, user_id, email, reason, blocked_by, blocked_at, is_active`

func scanBlockedUserRow(row rowScanner) (*models.BlockedUser, error) {
	var b models.BlockedUser

	err := row.Scan(&b.ID, &b.UserID, &b.Email, &b.Reason, &b.BlockedBy, &b.BlockedAt, &b.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &b, nil
}

// GetActiveByEmail returns the active block for an email, or models.ErrNotFound
func (r *BlockedUserRepository) GetActiveByEmail(ctx context.Context, email string) (*models.BlockedUser, error) {
	query := `SELECT ` + blockedUserColumns + ` FROM blocked_users WHERE email = LOWER($1) AND is_active`

	return scanBlockedUserRow(r.pool.QueryRow(ctx, query, email))
}

// Upsert sets an active block for the email, reactivating an existing row in place
func (r *BlockedUserRepository) Upsert(ctx context.Context, b *models.BlockedUser) (*models.BlockedUser, error) {
	query := `
		INSERT INTO blocked_users (user_id, email, reason, blocked_by, blocked_at, is_active)
		VALUES ($1, LOWER($2), $3, $4, $5, TRUE)
		ON CONFLICT (email) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			reason = EXCLUDED.reason,
			blocked_by = EXCLUDED.blocked_by,
			blocked_at = EXCLUDED.blocked_at,
			is_active = TRUE
		RETURNING ` + blockedUserColumns

	return scanBlockedUserRow(r.pool.QueryRow(ctx, query, b.UserID, b.Email, b.Reason, b.BlockedBy, b.BlockedAt))
}

// CreateAutomatic inserts or reactivates an automatic block in one statement.
// It reports false when an active block already existed, so concurrent callers
// create at most one.
func (r *BlockedUserRepository) CreateAutomatic(ctx context.Context, userID, email, reason string, at time.Time) (bool, error) {
	query := `
		INSERT INTO blocked_users (user_id, email, reason, blocked_by, blocked_at, is_active)
		VALUES ($1, LOWER($2), $3, NULL, $4, TRUE)
		ON CONFLICT (email) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			reason = EXCLUDED.reason,
			blocked_by = NULL,
			blocked_at = EXCLUDED.blocked_at,
			is_active = TRUE
		WHERE NOT blocked_users.is_active
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, query, userID, email, reason, at).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return true, nil
}

// DeactivateByEmail lifts every block row for the email
func (r *BlockedUserRepository) DeactivateByEmail(ctx context.Context, email string) (int64, error) {
	query := `UPDATE blocked_users SET is_active = FALSE WHERE email = LOWER($1) AND is_active`

	result, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return 0, fmt.Errorf("failed to unblock user: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListActive returns active blocks, newest first
func (r *BlockedUserRepository) ListActive(ctx context.Context) ([]*models.BlockedUser, error) {
	query := `SELECT ` + blockedUserColumns + ` FROM blocked_users WHERE is_active ORDER BY blocked_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked users: %w", err)
	}
	defer rows.Close()

	blocks := make([]*models.BlockedUser, 0)
	for rows.Next() {
		b, err := scanBlockedUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blocked user: %w", err)
		}
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocked users: %w", err)
	}

	return blocks, nil
}
