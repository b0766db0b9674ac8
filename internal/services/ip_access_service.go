package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

// IPListRepository defines the IP blocklist and whitelist persistence
type IPListRepository interface {
	IsBlocked(ctx context.Context, ip string, now time.Time) (bool, error)
	UpsertBlock(ctx context.Context, b *models.BlockedIP) (*models.BlockedIP, error)
	DeactivateBlock(ctx context.Context, ip string) (int64, error)
	ListBlocked(ctx context.Context) ([]*models.BlockedIP, error)
	IsWhitelisted(ctx context.Context, ip string) (bool, error)
	UpsertWhitelist(ctx context.Context, w *models.WhitelistedIP) (*models.WhitelistedIP, error)
	DeactivateWhitelist(ctx context.Context, ip string) (int64, error)
	ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error)
}

// IPAccessService manages the IP blocklist and the geo-restriction whitelist
type IPAccessService struct {
	repo     IPListRepository
	security *pkglogger.SecurityLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewIPAccessService creates a new IPAccessService
func NewIPAccessService(repo IPListRepository, logger *slog.Logger) *IPAccessService {
	return &IPAccessService{
		repo:     repo,
		security: pkglogger.NewSecurityLogger(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// IsBlocked reports whether an active, unexpired block matches ip
func (s *IPAccessService) IsBlocked(ctx context.Context, ip string) (bool, error) {
	return s.repo.IsBlocked(ctx, ip, s.now())
}

// IsWhitelisted reports whether ip bypasses the geo restriction
func (s *IPAccessService) IsWhitelisted(ctx context.Context, ip string) (bool, error) {
	return s.repo.IsWhitelisted(ctx, ip)
}

// Block sets an active block for ip, reactivating an existing entry in place.
// A nil expiresAt makes the block permanent.
func (s *IPAccessService) Block(ctx context.Context, ip, reason, actorID string, expiresAt *time.Time) (*models.BlockedIP, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: invalid ip address", models.ErrBadRequest)
	}

	block, err := s.repo.UpsertBlock(ctx, &models.BlockedIP{
		IPAddress: ip,
		Reason:    reason,
		BlockedBy: optionalString(actorID),
		BlockedAt: s.now(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("failed to block ip", slog.String("ip_address", ip), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.LogAdminAction(ctx, "IP_BLOCK", actorID, map[string]string{"ip_address": ip, "reason": reason})
	return block, nil
}

// Unblock deactivates the block for ip. Returns models.ErrNotFound if none was active.
func (s *IPAccessService) Unblock(ctx context.Context, ip, actorID string) error {
	n, err := s.repo.DeactivateBlock(ctx, ip)
	if err != nil {
		s.logger.Error("failed to unblock ip", slog.String("ip_address", ip), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if n == 0 {
		return models.ErrNotFound
	}

	s.security.LogAdminAction(ctx, "IP_UNBLOCK", actorID, map[string]string{"ip_address": ip})
	return nil
}

// List returns active IP blocks, newest first
func (s *IPAccessService) List(ctx context.Context) ([]*models.BlockedIP, error) {
	blocks, err := s.repo.ListBlocked(ctx)
	if err != nil {
		s.logger.Error("failed to list blocked ips", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return blocks, nil
}

// Whitelist exempts ip from the geo restriction
func (s *IPAccessService) Whitelist(ctx context.Context, ip, description, actorID string) (*models.WhitelistedIP, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: invalid ip address", models.ErrBadRequest)
	}

	entry, err := s.repo.UpsertWhitelist(ctx, &models.WhitelistedIP{
		IPAddress:   ip,
		Description: description,
		AddedBy:     optionalString(actorID),
		AddedAt:     s.now(),
	})
	if err != nil {
		s.logger.Error("failed to whitelist ip", slog.String("ip_address", ip), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.LogAdminAction(ctx, "IP_WHITELIST", actorID, map[string]string{"ip_address": ip})
	return entry, nil
}

// RemoveFromWhitelist deactivates the whitelist entry for ip
func (s *IPAccessService) RemoveFromWhitelist(ctx context.Context, ip, actorID string) error {
	n, err := s.repo.DeactivateWhitelist(ctx, ip)
	if err != nil {
		s.logger.Error("failed to remove ip from whitelist", slog.String("ip_address", ip), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if n == 0 {
		return models.ErrNotFound
	}

	s.security.LogAdminAction(ctx, "IP_WHITELIST_REMOVE", actorID, map[string]string{"ip_address": ip})
	return nil
}

// ListWhitelisted returns active whitelist entries, newest first
func (s *IPAccessService) ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error) {
	entries, err := s.repo.ListWhitelisted(ctx)
	if err != nil {
		s.logger.Error("failed to list whitelisted ips", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}
