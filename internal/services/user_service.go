package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetInternationalAccess(ctx context.Context, userID string, allow bool) error
}

// PasswordWriter stores credential records
type PasswordWriter interface {
	Upsert(ctx context.Context, pw *models.UserPassword) error
}

// UserService handles the user operations exposed to administrators
type UserService struct {
	repo      UserRepository
	passwords PasswordWriter
	security  *pkglogger.SecurityLogger
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, passwords PasswordWriter, logger *slog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		passwords: passwords,
		security:  pkglogger.NewSecurityLogger(logger),
		logger:    logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// ListUsers retrieves a list of users with pagination
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// SetInternationalAccess toggles the exemption from the Brazil-only restriction
func (s *UserService) SetInternationalAccess(ctx context.Context, userID string, allow bool, actorID string) (*models.User, error) {
	if err := s.repo.SetInternationalAccess(ctx, userID, allow); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update international access", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.security.LogAdminAction(ctx, "INTERNATIONAL_ACCESS", actorID, map[string]string{
		"user_id": userID,
		"allow":   fmt.Sprintf("%t", allow),
	})

	return s.GetUserByID(ctx, userID)
}

// EnsureAdmin creates an active admin with the given credentials unless the
// email already exists. The password is marked as final, not first-login.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	name := "Admin"
	admin, err := s.repo.Create(ctx, &models.User{
		Email:    email,
		Name:     &name,
		Role:     models.RoleAdmin,
		IsActive: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	now := time.Now()
	if err := s.passwords.Upsert(ctx, &models.UserPassword{
		UserID:            admin.ID,
		PasswordHash:      hashedPassword,
		PasswordUpdatedAt: &now,
		CreatedAt:         now,
	}); err != nil {
		return fmt.Errorf("failed to store admin password: %w", err)
	}

	s.logger.Info("admin user created successfully", slog.String("user_id", admin.ID))
	return nil
}
