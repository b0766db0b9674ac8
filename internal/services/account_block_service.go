package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

// BlockedUserRepository defines the account blocklist persistence
type BlockedUserRepository interface {
	GetActiveByEmail(ctx context.Context, email string) (*models.BlockedUser, error)
	Upsert(ctx context.Context, b *models.BlockedUser) (*models.BlockedUser, error)
	CreateAutomatic(ctx context.Context, userID, email, reason string, at time.Time) (bool, error)
	DeactivateByEmail(ctx context.Context, email string) (int64, error)
	ListActive(ctx context.Context) ([]*models.BlockedUser, error)
}

// AttemptClearer resets the failure counter of an email
type AttemptClearer interface {
	ClearFailedAttempts(ctx context.Context, email string) error
}

// AccountBlockService manages manual and automatic account blocks
type AccountBlockService struct {
	repo     BlockedUserRepository
	users    UserLookup
	attempts AttemptClearer
	security *pkglogger.SecurityLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountBlockService creates a new AccountBlockService
func NewAccountBlockService(repo BlockedUserRepository, users UserLookup, attempts AttemptClearer, logger *slog.Logger) *AccountBlockService {
	return &AccountBlockService{
		repo:     repo,
		users:    users,
		attempts: attempts,
		security: pkglogger.NewSecurityLogger(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// IsBlocked reports whether an active block exists for email
func (s *AccountBlockService) IsBlocked(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.GetActiveByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBlockInfo returns the active block for email, or models.ErrNotFound
func (s *AccountBlockService) GetBlockInfo(ctx context.Context, email string) (*models.BlockedUser, error) {
	block, err := s.repo.GetActiveByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get block info", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return block, nil
}

// Block sets a manual block for an existing user's email
func (s *AccountBlockService) Block(ctx context.Context, email, reason, actorID string) (*models.BlockedUser, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to resolve user for block", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	block, err := s.repo.Upsert(ctx, &models.BlockedUser{
		UserID:    user.ID,
		Email:     email,
		Reason:    reason,
		BlockedBy: optionalString(actorID),
		BlockedAt: s.now(),
	})
	if err != nil {
		s.logger.Error("failed to block user", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.LogAdminAction(ctx, "USER_BLOCK", actorID, map[string]string{"user_id": user.ID, "reason": reason})
	return block, nil
}

// Unblock deactivates every block row for email and clears its failed
// attempts so the next login is evaluated from a clean counter.
func (s *AccountBlockService) Unblock(ctx context.Context, email, actorID string) error {
	email = normalizeEmail(email)

	n, err := s.repo.DeactivateByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to unblock user", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if n == 0 {
		return models.ErrNotFound
	}

	if err := s.attempts.ClearFailedAttempts(ctx, email); err != nil {
		s.logger.Error("failed to clear attempts after unblock", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.security.LogAdminAction(ctx, "USER_UNBLOCK", actorID, map[string]string{"email": pkglogger.SanitizedEmail(email)})
	return nil
}

// List returns active account blocks, newest first
func (s *AccountBlockService) List(ctx context.Context) ([]*models.BlockedUser, error) {
	blocks, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list blocked users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return blocks, nil
}
