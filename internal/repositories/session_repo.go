package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles server-side session records
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

const sessionColumns = `id, user_id, token_hash, created_at, last_activity, expires_at, revoked_at,
	ip_address, user_agent, location, is_active`

func scanSessionRow(row rowScanner) (*models.Session, error) {
	var s models.Session

	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.CreatedAt, &s.LastActivity, &s.ExpiresAt,
		&s.RevokedAt, &s.IPAddress, &s.UserAgent, &s.Location, &s.IsActive,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

func scanSessionRows(rows pgx.Rows) ([]*models.Session, error) {
	defer rows.Close()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// Create inserts a new session. Only the token hash is stored.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sessions (id, user_id, token_hash, created_at, last_activity, expires_at, ip_address, user_agent, location, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING ` + sessionColumns

	created, err := scanSessionRow(r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.CreatedAt, s.LastActivity, s.ExpiresAt,
		s.IPAddress, s.UserAgent, s.Location,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

// GetActiveByTokenHash returns the active, non-revoked session for a token hash
func (r *SessionRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token_hash = $1 AND is_active AND revoked_at IS NULL
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// GetByID returns a session in any state, or models.ErrNotFound
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	return scanSessionRow(r.pool.QueryRow(ctx, query, id))
}

// TouchActivity records the latest validated request time
func (r *SessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sessions SET last_activity = $2 WHERE id = $1 AND is_active`

	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}

	return nil
}

// Revoke deactivates a session. Revoking an already revoked session keeps
// its original revocation time. Returns models.ErrNotFound for unknown ids.
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RevokeAllForUser revokes every active session of a user except exceptID (may be empty)
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID, exceptID string, at time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $3
		WHERE user_id = $1 AND is_active AND ($2 = '' OR id::text <> $2)
	`

	result, err := r.pool.Exec(ctx, query, userID, exceptID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListActive returns unexpired active sessions, newest activity first.
// An empty userID lists sessions of all users.
func (r *SessionRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE is_active AND revoked_at IS NULL AND expires_at > $2
			AND ($1 = '' OR user_id::text = $1)
		ORDER BY last_activity DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	return scanSessionRows(rows)
}

// DeactivateExpired revokes sessions past their absolute expiry or idle cutoff
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $1
		WHERE is_active AND (expires_at <= $1 OR last_activity <= $2)
	`

	result, err := r.pool.Exec(ctx, query, now, idleCutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
