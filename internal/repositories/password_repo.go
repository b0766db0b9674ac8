package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordRepository handles the user_passwords credential records
type PasswordRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordRepository creates a new PasswordRepository
func NewPasswordRepository(db *database.DB) *PasswordRepository {
	return &PasswordRepository{pool: db.Pool}
}

func scanPasswordRow(row rowScanner) (*models.UserPassword, error) {
	var pw models.UserPassword

	err := row.Scan(
		&pw.UserID, &pw.PasswordHash, &pw.IsFirstLogin, &pw.MustChange,
		&pw.PasswordUpdatedAt, &pw.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &pw, nil
}

// GetByUserID returns the credential record of a user
func (r *PasswordRepository) GetByUserID(ctx context.Context, userID string) (*models.UserPassword, error) {
	query := `
		SELECT user_id, password_hash, is_first_login, must_change, password_updated_at, created_at
		FROM user_passwords WHERE user_id = $1
	`

	return scanPasswordRow(r.pool.QueryRow(ctx, query, userID))
}

// Upsert creates or replaces the credential record of a user
func (r *PasswordRepository) Upsert(ctx context.Context, pw *models.UserPassword) error {
	return upsertPassword(ctx, r.pool, pw)
}

// RedeemReset consumes an unused, unexpired password reset and stores the new
// password hash in one transaction. The first-login flags are cleared.
// Returns models.ErrInvalidVerificationToken when no redeemable reset exists.
func (r *PasswordRepository) RedeemReset(ctx context.Context, tokenHash, userID, passwordHash string, now time.Time) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		consume := `
			UPDATE password_resets
			SET used_at = $3
			WHERE token_hash = $1 AND user_id = $2 AND used_at IS NULL AND expires_at > $3
		`

		result, err := tx.Exec(ctx, consume, tokenHash, userID, now)
		if err != nil {
			return fmt.Errorf("failed to consume password reset: %w", err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrInvalidVerificationToken
		}

		return upsertPassword(ctx, tx, &models.UserPassword{
			UserID:            userID,
			PasswordHash:      passwordHash,
			IsFirstLogin:      false,
			MustChange:        false,
			PasswordUpdatedAt: &now,
		})
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertPassword(ctx context.Context, db execer, pw *models.UserPassword) error {
	query := `
		INSERT INTO user_passwords (user_id, password_hash, is_first_login, must_change, password_updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
			is_first_login = EXCLUDED.is_first_login,
			must_change = EXCLUDED.must_change,
			password_updated_at = EXCLUDED.password_updated_at
	`

	_, err := db.Exec(ctx, query, pw.UserID, pw.PasswordHash, pw.IsFirstLogin, pw.MustChange, pw.PasswordUpdatedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}
