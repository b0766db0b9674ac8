package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/testutil"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

func TestUserService_GetUserByID_Success(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "Test User")

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.GetUserByID(context.Background(), "user123")

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "user123", result.ID)
	assert.Equal(t, "user@example.com", result.Email)
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.GetUserByID(context.Background(), "nonexistent")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.ErrNotFound, err)
}

func TestUserService_GetUserByID_DatabaseError(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, assert.AnError
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.GetUserByID(context.Background(), "user123")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.ErrInternalServer, err)
}

func TestUserService_ListUsers_Success(t *testing.T) {
	users := []*models.User{
		NewTestUser("user1", "user1@example.com", "User One"),
		NewTestUser("user2", "user2@example.com", "User Two"),
	}

	mockUserRepo := &MockUserRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			return users, nil
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.ListUsers(context.Background(), 10, 0)

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "user1", result[0].ID)
	assert.Equal(t, "user2", result[1].ID)
}

func TestUserService_ListUsers_DatabaseError(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			return nil, assert.AnError
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.ListUsers(context.Background(), 10, 0)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.ErrInternalServer, err)
}

func TestUserService_SetInternationalAccess(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "Test User")

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		SetInternationalAccessFunc: func(ctx context.Context, userID string, allow bool) error {
			user.AllowInternationalAccess = allow
			return nil
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.SetInternationalAccess(context.Background(), "user123", true, "admin-1")

	assert.NoError(t, err)
	assert.True(t, result.AllowInternationalAccess)
}

func TestUserService_SetInternationalAccess_NotFound(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		SetInternationalAccessFunc: func(ctx context.Context, userID string, allow bool) error {
			return models.ErrNotFound
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	result, err := svc.SetInternationalAccess(context.Background(), "nonexistent", true, "admin-1")

	assert.Nil(t, result)
	assert.Equal(t, models.ErrNotFound, err)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := NewUserService(store.UserRepo(), store.PasswordRepo(), newTestLogger())
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "Admin@Example.com", "Admin#Forte2024"))

	admin, err := store.UserRepo().GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsActive)

	password, err := store.PasswordRepo().GetByUserID(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, password.IsFirstLogin)
	assert.True(t, pkgauth.VerifyPassword(password.PasswordHash, "Admin#Forte2024"))

	// second call is a no-op
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "Outra#Senha2024"))
	assert.Len(t, store.Users, 1)
}

func TestUserService_EnsureAdmin_LookupError(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, assert.AnError
		},
	}

	svc := NewUserService(mockUserRepo, nil, newTestLogger())

	err := svc.EnsureAdmin(context.Background(), "admin@example.com", "Admin#Forte2024")
	assert.ErrorIs(t, err, assert.AnError)
}
