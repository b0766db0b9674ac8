package services

import (
	"context"
	"log/slog"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// LoginAuditRepository defines the login_audit persistence
type LoginAuditRepository interface {
	Create(ctx context.Context, entry *models.LoginAudit) error
	List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error)
	Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error)
}

// AuditEvent is one authentication event to record
type AuditEvent struct {
	ActionType string
	UserID     string
	Email      string
	Success    bool
	Reason     string
	IPAddress  string
	UserAgent  string
	Location   string
	SessionID  string
	ActorID    string
}

// AuditService records authentication events with a dual write: a structured
// log line and a login_audit row.
type AuditService struct {
	repo     LoginAuditRepository
	security *pkglogger.SecurityLogger
	logger   *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo LoginAuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:     repo,
		security: pkglogger.NewSecurityLogger(logger),
		logger:   logger,
	}
}

// Record writes the event. Persistence failures are logged and never
// propagated to the authentication flow.
func (s *AuditService) Record(ctx context.Context, event AuditEvent) {
	s.security.Log(ctx, pkglogger.SecurityEvent{
		EventType: event.ActionType,
		UserID:    event.UserID,
		Email:     event.Email,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Success:   event.Success,
		Code:      event.Reason,
		SessionID: event.SessionID,
		ActorID:   event.ActorID,
	})

	entry := &models.LoginAudit{
		UserID:     optionalString(event.UserID),
		EmailInput: optionalString(normalizeEmail(event.Email)),
		Success:    event.Success,
		Reason:     optionalString(event.Reason),
		IPAddress:  optionalString(event.IPAddress),
		UserAgent:  optionalString(event.UserAgent),
		Location:   optionalString(event.Location),
		Provider:   models.AuditProviderLocal,
		ActionType: event.ActionType,
		SessionID:  optionalString(event.SessionID),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist login audit",
			slog.String("action_type", event.ActionType),
			slog.Any("error", err),
		)
	}
}

// List returns a page of audit entries and the total matching count
func (s *AuditService) List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list login audit", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return logs, total, nil
}

// Stats aggregates LOGIN entries, optionally for one user
func (s *AuditService) Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		s.logger.Error("failed to compute login audit stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return stats, nil
}
