package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginAuditRepository handles the login_audit compliance trail
type LoginAuditRepository struct {
	pool *pgxpool.Pool
}

// NewLoginAuditRepository creates a new LoginAuditRepository
func NewLoginAuditRepository(db *database.DB) *LoginAuditRepository {
	return &LoginAuditRepository{pool: db.Pool}
}

const loginAuditColumns = `id, user_id, email_input, success, reason, ip_address, user_agent, location,
	provider, action_type, session_id, created_at`

// Create appends an audit entry
func (r *LoginAuditRepository) Create(ctx context.Context, entry *models.LoginAudit) error {
	query := `
		INSERT INTO login_audit (user_id, email_input, success, reason, ip_address, user_agent, location, provider, action_type, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.UserID, entry.EmailInput, entry.Success, entry.Reason, entry.IPAddress,
		entry.UserAgent, entry.Location, entry.Provider, entry.ActionType, entry.SessionID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login audit entry: %w", err)
	}

	return nil
}

// buildAuditWhere renders the filter as a WHERE clause with positional args
func buildAuditWhere(filter models.LoginAuditFilter) (string, []interface{}) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("user_id::text = $%d", filter.UserID)
	}
	if filter.Action != "" {
		add("action_type = $%d", filter.Action)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of entries matching the filter (newest first) and the total match count
func (r *LoginAuditRepository) List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
	where, args := buildAuditWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM login_audit`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count login audit entries: %w", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM login_audit%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		loginAuditColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query login audit: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LoginAudit, 0)
	for rows.Next() {
		var e models.LoginAudit
		if err := rows.Scan(&e.ID, &e.UserID, &e.EmailInput, &e.Success, &e.Reason, &e.IPAddress,
			&e.UserAgent, &e.Location, &e.Provider, &e.ActionType, &e.SessionID, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan login audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating login audit: %w", err)
	}

	return entries, total, nil
}

// Stats aggregates LOGIN entries for one user, or all users when userID is empty
func (r *LoginAuditRepository) Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success),
			COUNT(DISTINCT ip_address)
		FROM login_audit
		WHERE action_type = 'LOGIN' AND ($1 = '' OR user_id::text = $1)
	`

	var stats models.LoginAuditStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalLogins, &stats.SuccessLogins, &stats.FailedLogins, &stats.UniqueIPs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute login stats: %w", err)
	}

	if stats.TotalLogins > 0 {
		stats.SuccessRate = float64(stats.SuccessLogins) / float64(stats.TotalLogins) * 100
	}

	return &stats, nil
}
