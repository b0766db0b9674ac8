package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Create appends a login attempt
func (r *LoginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (email, ip_address, success, country, city, user_agent, error_reason, attempted_at)
		VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Email,
		attempt.IPAddress,
		attempt.Success,
		attempt.Country,
		attempt.City,
		attempt.UserAgent,
		attempt.ErrorReason,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

// CountFailedSince returns the number of failed attempts for an email within a time window
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = LOWER($1) AND success = FALSE AND attempted_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, err
}

// LatestFailureSince returns the timestamp of the most recent failed attempt for an email
func (r *LoginAttemptRepository) LatestFailureSince(ctx context.Context, email string, since time.Time) (*time.Time, error) {
	query := `
		SELECT attempted_at FROM login_attempts
		WHERE email = LOWER($1) AND success = FALSE AND attempted_at >= $2
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	var failureTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&failureTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &failureTime, nil
}

// DeleteFailed purges every failed attempt for an email
func (r *LoginAttemptRepository) DeleteFailed(ctx context.Context, email string) (int64, error) {
	query := `DELETE FROM login_attempts WHERE email = LOWER($1) AND success = FALSE`

	result, err := r.db.Pool.Exec(ctx, query, email)
	if err != nil {
		return 0, fmt.Errorf("failed to clear failed attempts: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListRecent returns the latest attempts across all emails
func (r *LoginAttemptRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, email, ip_address, success, country, city, user_agent, error_reason, attempted_at
		FROM login_attempts
		ORDER BY attempted_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Email, &a.IPAddress, &a.Success, &a.Country, &a.City,
			&a.UserAgent, &a.ErrorReason, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login attempts: %w", err)
	}

	return attempts, nil
}

// DeleteOlderThan removes attempts recorded before cutoff
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old login attempts: %w", err)
	}

	return result.RowsAffected(), nil
}
