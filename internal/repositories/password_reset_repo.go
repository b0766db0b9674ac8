package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetRepository stores hashes of issued password-change verification tokens
type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{pool: db.Pool}
}

// Create stores the hash of an issued token
func (r *PasswordResetRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO password_resets (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.pool.Exec(ctx, query, userID, tokenHash, expiresAt); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// CleanupExpired deletes used or expired resets older than cutoff
func (r *PasswordResetRepository) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM password_resets
		WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup password resets: %w", err)
	}

	return result.RowsAffected(), nil
}
