package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

// FirstAccessUserRepository loads users for the first-access flow
type FirstAccessUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordRepository defines the credential persistence
type PasswordRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserPassword, error)
	RedeemReset(ctx context.Context, tokenHash, userID, passwordHash string, now time.Time) error
}

// VerificationCodeRepository stores hashed one-time codes
type VerificationCodeRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.EmailVerificationCode, error)
	Consume(ctx context.Context, userID, tokenHash string, now time.Time) (*models.EmailVerificationCode, error)
}

// PasswordResetRepository stores hashed verification tokens
type PasswordResetRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
}

// SessionIssuer creates and bulk-revokes sessions
type SessionIssuer interface {
	CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*models.Session, string, error)
	RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int64, error)
}

// ChangePasswordRequest completes the first-access flow
type ChangePasswordRequest struct {
	Email             string
	VerificationToken string
	NewPassword       string
	IPAddress         string
	UserAgent         string
}

// FirstAccessService implements the first-login completion flow: a mailed
// one-time code is exchanged for a short-lived verification token, which is
// exchanged with a new password for a session. Codes and tokens are single use.
type FirstAccessService struct {
	users      FirstAccessUserRepository
	passwords  PasswordRepository
	codes      VerificationCodeRepository
	resets     PasswordResetRepository
	tokens     *auth.VerificationTokenIssuer
	sender     EmailSender
	sessions   SessionIssuer
	auditor    Auditor
	codeExpiry time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// FirstAccessDependencies groups the collaborators of FirstAccessService
type FirstAccessDependencies struct {
	Users      FirstAccessUserRepository
	Passwords  PasswordRepository
	Codes      VerificationCodeRepository
	Resets     PasswordResetRepository
	Tokens     *auth.VerificationTokenIssuer
	Sender     EmailSender
	Sessions   SessionIssuer
	Auditor    Auditor
	CodeExpiry time.Duration
}

// NewFirstAccessService creates a new FirstAccessService
func NewFirstAccessService(deps FirstAccessDependencies, logger *slog.Logger) *FirstAccessService {
	return &FirstAccessService{
		users:      deps.Users,
		passwords:  deps.Passwords,
		codes:      deps.Codes,
		resets:     deps.Resets,
		tokens:     deps.Tokens,
		sender:     deps.Sender,
		sessions:   deps.Sessions,
		auditor:    deps.Auditor,
		codeExpiry: deps.CodeExpiry,
		logger:     logger,
		now:        time.Now,
	}
}

// SendVerificationCode mails a fresh code when email belongs to a user in
// first-login state. Other emails are ignored without error.
func (s *FirstAccessService) SendVerificationCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification code requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	password, err := s.passwords.GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to look up password: %w", err)
	}
	if password == nil || !password.IsFirstLogin {
		s.logger.Info("verification code requested outside first access", slog.String("user_id", user.ID))
		return nil
	}

	code, err := pkgauth.GenerateVerificationCode()
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.codeExpiry)
	if _, err := s.codes.Create(ctx, user.ID, pkgauth.HashToken(code), expiresAt); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	name := ""
	if user.Name != nil {
		name = *user.Name
	}
	if err := s.sender.SendVerificationCode(ctx, user.Email, name, code, expiresAt); err != nil {
		return err
	}

	s.logger.Info("verification code issued", slog.String("user_id", user.ID))
	return nil
}

func isVerificationCode(code string) bool {
	if len(code) != pkgauth.VerificationCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// VerifyCode consumes a valid code and returns a verification token with its
// expiry. Every mismatch returns models.ErrInvalidVerificationCode.
func (s *FirstAccessService) VerifyCode(ctx context.Context, email, code string) (string, time.Time, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)

	if !isVerificationCode(code) {
		return "", time.Time{}, models.ErrInvalidVerificationCode
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", time.Time{}, models.ErrInvalidVerificationCode
		}
		return "", time.Time{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if _, err := s.codes.Consume(ctx, user.ID, pkgauth.HashToken(code), s.now()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", time.Time{}, models.ErrInvalidVerificationCode
		}
		return "", time.Time{}, fmt.Errorf("failed to consume verification code: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := s.resets.Create(ctx, user.ID, pkgauth.HashToken(token), expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store verification token: %w", err)
	}

	s.logger.Info("verification code accepted", slog.String("user_id", user.ID))
	return token, expiresAt, nil
}

// ChangePassword redeems the verification token, stores the new password,
// revokes existing sessions and opens a new one. Weak passwords return
// *pkgauth.PasswordValidationError.
func (s *FirstAccessService) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*LoginResult, error) {
	if err := pkgauth.ValidatePassword(req.NewPassword); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Parse(req.VerificationToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidVerificationToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !strings.EqualFold(user.Email, strings.TrimSpace(req.Email)) || !strings.EqualFold(user.Email, claims.Email) {
		return nil, models.ErrInvalidVerificationToken
	}
	if !user.IsActive {
		return nil, models.ErrForbidden
	}

	current, err := s.passwords.GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up password: %w", err)
	}
	if current != nil && !current.IsFirstLogin && !current.MustChange {
		return nil, models.ErrNotFirstLogin
	}

	hash, err := pkgauth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.RedeemReset(ctx, pkgauth.HashToken(req.VerificationToken), user.ID, hash, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.sessions.RevokeAllUserSessions(ctx, user.ID, ""); err != nil {
		s.logger.Error("failed to revoke sessions after password change", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	session, token, err := s.sessions.CreateSession(ctx, user.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, AuditEvent{
		ActionType: models.AuditActionPasswordChange,
		UserID:     user.ID,
		Email:      user.Email,
		Success:    true,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		SessionID:  session.ID,
	})

	return &LoginResult{Code: models.CodeSuccess, User: user, Session: session, Token: token}, nil
}
