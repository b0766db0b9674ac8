package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/metrics"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

const (
	// RateLimitWindow is the trailing window in which failed attempts count
	RateLimitWindow = 15 * time.Minute
	// CooldownThreshold failures within the window trigger a cooldown
	CooldownThreshold = 3
	// PermanentBlockThreshold failures within the window lock the account
	PermanentBlockThreshold = 5
	// CooldownDuration is measured from the most recent failure
	CooldownDuration = 15 * time.Minute
	// AutoBlockReason is stored on automatic account blocks
	AutoBlockReason = "auto-blocked after 5 failed attempts"
	// RecentAttemptsLimit bounds the admin login-attempts view
	RecentAttemptsLimit = 100
)

// LoginAttemptRepository defines the login attempt persistence used by the rate limiter
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailedSince(ctx context.Context, email string, since time.Time) (int, error)
	LatestFailureSince(ctx context.Context, email string, since time.Time) (*time.Time, error)
	DeleteFailed(ctx context.Context, email string) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AutoBlocker persists automatic account blocks
type AutoBlocker interface {
	CreateAutomatic(ctx context.Context, userID, email, reason string, at time.Time) (bool, error)
}

// UserLookup resolves users by email
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RateLimitResult is the verdict for one email
type RateLimitResult struct {
	Allowed            bool
	AttemptsLeft       int
	CooldownUntil      *time.Time
	PermanentlyBlocked bool
}

// RateLimitService counts failed attempts per email and escalates from
// allowed to cooldown to permanently blocked. It only decides; callers enforce.
type RateLimitService struct {
	attempts LoginAttemptRepository
	blocks   AutoBlocker
	users    UserLookup
	logger   *slog.Logger
	now      func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(attempts LoginAttemptRepository, blocks AutoBlocker, users UserLookup, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		attempts: attempts,
		blocks:   blocks,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckLoginAttempts returns the rate-limit verdict for email. Reaching the
// permanent threshold creates an automatic account block exactly once.
func (s *RateLimitService) CheckLoginAttempts(ctx context.Context, email, ipAddress string) (*RateLimitResult, error) {
	email = normalizeEmail(email)
	now := s.now()
	since := now.Add(-RateLimitWindow)

	failedCount, err := s.attempts.CountFailedSince(ctx, email, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count login attempts: %w", err)
	}

	if failedCount >= PermanentBlockThreshold {
		if err := s.autoBlock(ctx, email, ipAddress, failedCount, now); err != nil {
			return nil, err
		}
		return &RateLimitResult{Allowed: false, AttemptsLeft: 0, PermanentlyBlocked: true}, nil
	}

	if failedCount >= CooldownThreshold {
		latest, err := s.attempts.LatestFailureSince(ctx, email, since)
		if err != nil {
			return nil, fmt.Errorf("failed to read latest failure: %w", err)
		}

		cooldownUntil := now.Add(CooldownDuration)
		if latest != nil {
			cooldownUntil = latest.Add(CooldownDuration)
		}

		return &RateLimitResult{Allowed: false, AttemptsLeft: 0, CooldownUntil: &cooldownUntil}, nil
	}

	return &RateLimitResult{Allowed: true, AttemptsLeft: CooldownThreshold - failedCount}, nil
}

// autoBlock persists the automatic block when the email belongs to a user.
// The insert is conditional, so concurrent callers create at most one row.
func (s *RateLimitService) autoBlock(ctx context.Context, email, ipAddress string, failedCount int, now time.Time) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve user for auto-block: %w", err)
	}

	created, err := s.blocks.CreateAutomatic(ctx, user.ID, email, AutoBlockReason, now)
	if err != nil {
		return fmt.Errorf("failed to create automatic block: %w", err)
	}

	if created {
		metrics.AutoBlocksTotal.Inc()
		s.logger.Warn("account automatically blocked",
			slog.String("user_id", user.ID),
			slog.String("ip_address", ipAddress),
			slog.Int("failed_attempts", failedCount))
	}

	return nil
}

// RecordLoginAttempt appends an attempt. A success also purges the email's
// failed attempts so the next streak starts from zero.
func (s *RateLimitService) RecordLoginAttempt(ctx context.Context, email, ipAddress string, success bool, meta models.AttemptMeta) error {
	email = normalizeEmail(email)

	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   ipAddress,
		Success:     success,
		Country:     optionalString(meta.Country),
		City:        optionalString(meta.City),
		UserAgent:   optionalString(meta.UserAgent),
		ErrorReason: optionalString(meta.ErrorReason),
		AttemptedAt: s.now(),
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return err
	}

	if success {
		if _, err := s.attempts.DeleteFailed(ctx, email); err != nil {
			return fmt.Errorf("failed to reset failed attempts: %w", err)
		}
	}

	return nil
}

// ClearFailedAttempts resets the failure counter for email
func (s *RateLimitService) ClearFailedAttempts(ctx context.Context, email string) error {
	if _, err := s.attempts.DeleteFailed(ctx, normalizeEmail(email)); err != nil {
		return fmt.Errorf("failed to clear failed attempts: %w", err)
	}
	return nil
}

// ListRecentAttempts returns the latest attempts across all emails
func (s *RateLimitService) ListRecentAttempts(ctx context.Context) ([]*models.LoginAttempt, error) {
	attempts, err := s.attempts.ListRecent(ctx, RecentAttemptsLimit)
	if err != nil {
		s.logger.Error("failed to list login attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return attempts, nil
}

// CleanupOldAttempts deletes attempts older than retention
func (s *RateLimitService) CleanupOldAttempts(ctx context.Context, retention time.Duration) (int64, error) {
	return s.attempts.DeleteOlderThan(ctx, s.now().Add(-retention))
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
