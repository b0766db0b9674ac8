package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmailVerificationRepository handles one-time first-access codes
type EmailVerificationRepository struct {
	pool *pgxpool.Pool
}

// NewEmailVerificationRepository creates a new EmailVerificationRepository
func NewEmailVerificationRepository(db *database.DB) *EmailVerificationRepository {
	return &EmailVerificationRepository{pool: db.Pool}
}

// scanCodeRow handles nullable fields and populates an EmailVerificationCode model from a database row
func scanCodeRow(row rowScanner) (*models.EmailVerificationCode, error) {
	var code models.EmailVerificationCode

	err := row.Scan(&code.ID, &code.UserID, &code.TokenHash, &code.ExpiresAt, &code.UsedAt, &code.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &code, nil
}

// Create stores the hash of a newly mailed code
func (r *EmailVerificationRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.EmailVerificationCode, error) {
	query := `
		INSERT INTO email_verifications (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at
	`

	code, err := scanCodeRow(r.pool.QueryRow(ctx, query, userID, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification code: %w", err)
	}

	return code, nil
}

// Consume marks the newest matching unused, unexpired code as used.
// The conditional update makes a code redeemable exactly once.
// Returns models.ErrNotFound when nothing matches.
func (r *EmailVerificationRepository) Consume(ctx context.Context, userID, tokenHash string, now time.Time) (*models.EmailVerificationCode, error) {
	query := `
		UPDATE email_verifications
		SET used_at = $3
		WHERE id = (
			SELECT id FROM email_verifications
			WHERE user_id = $1 AND token_hash = $2 AND used_at IS NULL AND expires_at > $3
			ORDER BY created_at DESC
			LIMIT 1
		) AND used_at IS NULL
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at
	`

	return scanCodeRow(r.pool.QueryRow(ctx, query, userID, tokenHash, now))
}

// CleanupExpired deletes used or expired codes older than cutoff
func (r *EmailVerificationRepository) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM email_verifications
		WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup verification codes: %w", err)
	}

	return result.RowsAffected(), nil
}
