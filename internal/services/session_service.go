package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/geoip"
	"github.com/gestaoconhecimento/gc-auth/internal/metrics"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

// ActivityWriteThreshold throttles last_activity writes during validation
const ActivityWriteThreshold = 60 * time.Second

// SessionRepository defines the session persistence
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) (*models.Session, error)
	GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID, exceptID string, at time.Time) (int64, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]*models.Session, error)
	DeactivateExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error)
}

// UserGetter loads users by id
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// GeoLocator resolves an IP to a location. Implementations never fail.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) geoip.Location
}

// Auditor records authentication events
type Auditor interface {
	Record(ctx context.Context, event AuditEvent)
}

// SessionConfig holds the session lifetime settings
type SessionConfig struct {
	MaxAge      time.Duration // absolute lifetime from creation
	IdleTimeout time.Duration // maximum gap between validated requests
}

// SessionService creates, validates and revokes server-side sessions bound
// to opaque bearer tokens. Only the SHA-256 of a token is ever stored.
type SessionService struct {
	repo    SessionRepository
	users   UserGetter
	geo     GeoLocator
	auditor Auditor
	config  SessionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, users UserGetter, geo GeoLocator, auditor Auditor, config SessionConfig, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:    repo,
		users:   users,
		geo:     geo,
		auditor: auditor,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Config returns the session lifetime settings
func (s *SessionService) Config() SessionConfig {
	return s.config
}

// CreateSession issues a new session and returns it with the raw token.
// The raw token is returned exactly once and cannot be recovered later.
func (s *SessionService) CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*models.Session, string, error) {
	token, err := pkgauth.GenerateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	var location *string
	if ipAddress != "" {
		location = optionalString(s.geo.Locate(ctx, ipAddress).String())
	}

	now := s.now()
	session, err := s.repo.Create(ctx, &models.Session{
		UserID:       userID,
		TokenHash:    pkgauth.HashToken(token),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.config.MaxAge),
		IPAddress:    optionalString(ipAddress),
		UserAgent:    optionalString(userAgent),
		Location:     location,
		IsActive:     true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	s.logger.Info("session created", slog.String("user_id", userID), slog.String("session_id", session.ID))

	return session, token, nil
}

// ValidateSession resolves a raw token to its session and user. It returns
// nil for unknown, expired, idle or revoked sessions, for inactive users, and
// on any internal error. Expired and idle sessions are revoked on detection.
func (s *SessionService) ValidateSession(ctx context.Context, token string) *models.AuthenticatedSession {
	if token == "" {
		return nil
	}

	session, err := s.repo.GetActiveByTokenHash(ctx, pkgauth.HashToken(token))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.SessionValidationsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.SessionValidationsTotal.WithLabelValues("error").Inc()
			s.logger.Error("failed to load session", slog.Any("error", err))
		}
		return nil
	}

	now := s.now()

	if session.IsExpired(now) {
		s.invalidate(ctx, session, now, "expired")
		return nil
	}

	if session.IsIdle(now, s.config.IdleTimeout) {
		s.invalidate(ctx, session, now, "idle")
		return nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.invalidate(ctx, session, now, "inactive_user")
			return nil
		}
		metrics.SessionValidationsTotal.WithLabelValues("error").Inc()
		s.logger.Error("failed to load session user", slog.String("session_id", session.ID), slog.Any("error", err))
		return nil
	}

	if !user.IsActive {
		s.invalidate(ctx, session, now, "inactive_user")
		return nil
	}

	if now.Sub(session.LastActivity) > ActivityWriteThreshold {
		if err := s.repo.TouchActivity(ctx, session.ID, now); err != nil {
			s.logger.Warn("failed to update session activity", slog.String("session_id", session.ID), slog.Any("error", err))
		} else {
			session.LastActivity = now
		}
	}

	metrics.SessionValidationsTotal.WithLabelValues("valid").Inc()
	return &models.AuthenticatedSession{Session: session, User: user}
}

func (s *SessionService) invalidate(ctx context.Context, session *models.Session, now time.Time, result string) {
	metrics.SessionValidationsTotal.WithLabelValues(result).Inc()

	if err := s.repo.Revoke(ctx, session.ID, now); err != nil {
		s.logger.Error("failed to revoke invalid session",
			slog.String("session_id", session.ID),
			slog.String("reason", result),
			slog.Any("error", err))
		return
	}

	s.logger.Info("session invalidated", slog.String("session_id", session.ID), slog.String("reason", result))
}

// RevokeSession revokes a session by id. Revoking twice is a no-op.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.repo.Revoke(ctx, sessionID, s.now())
}

// Logout revokes the session bound to token and records a LOGOUT entry.
// Unknown or already revoked tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, token, ipAddress, userAgent string) error {
	if token == "" {
		return nil
	}

	session, err := s.repo.GetActiveByTokenHash(ctx, pkgauth.HashToken(token))
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.RevokeSession(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.auditor.Record(ctx, AuditEvent{
		ActionType: models.AuditActionLogout,
		UserID:     session.UserID,
		Success:    true,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		SessionID:  session.ID,
	})
	return nil
}

// RevokeAllUserSessions revokes every active session of userID except
// exceptSessionID, which may be empty.
func (s *SessionService) RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	n, err := s.repo.RevokeAllForUser(ctx, userID, exceptSessionID, s.now())
	if err != nil {
		return 0, err
	}

	s.logger.Info("user sessions revoked", slog.String("user_id", userID), slog.Int64("count", n))
	return n, nil
}

// ForceLogout is the administrative revoke of one session. It writes a
// FORCED_LOGOUT audit entry attributed to actorID.
func (s *SessionService) ForceLogout(ctx context.Context, sessionID, actorID, reason string) error {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.repo.Revoke(ctx, session.ID, s.now()); err != nil {
		return err
	}

	s.auditor.Record(ctx, AuditEvent{
		ActionType: models.AuditActionForcedLogout,
		UserID:     session.UserID,
		Success:    true,
		Reason:     reason,
		SessionID:  session.ID,
		ActorID:    actorID,
	})
	return nil
}

// ForceLogoutUser revokes every session of userID and writes one
// FORCED_LOGOUT audit entry.
func (s *SessionService) ForceLogoutUser(ctx context.Context, userID, actorID, reason string) (int64, error) {
	n, err := s.RevokeAllUserSessions(ctx, userID, "")
	if err != nil {
		return 0, err
	}

	s.auditor.Record(ctx, AuditEvent{
		ActionType: models.AuditActionForcedLogout,
		UserID:     userID,
		Success:    true,
		Reason:     reason,
		ActorID:    actorID,
	})
	return n, nil
}

// ListActiveSessions returns unexpired active sessions, optionally for one user
func (s *SessionService) ListActiveSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.repo.ListActive(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("failed to list sessions", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return sessions, nil
}

// CleanExpiredSessions deactivates sessions past absolute expiry or idle timeout
func (s *SessionService) CleanExpiredSessions(ctx context.Context) (int64, error) {
	now := s.now()
	return s.repo.DeactivateExpired(ctx, now, now.Add(-s.config.IdleTimeout))
}
