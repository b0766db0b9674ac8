package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

const newPassword = "NovaSenha#2025x"

// verifiedToken runs the code exchange for email and returns the token
func verifiedToken(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, email))
	code := env.sender.LastCode(email)
	require.Len(t, code, pkgauth.VerificationCodeDigits)

	token, _, err := env.firstAccess.VerifyCode(ctx, email, code)
	require.NoError(t, err)
	return token
}

func TestFirstAccess_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "novo@example.com", true)

	result, loginErr := env.attempt("novo@example.com", testPassword, brazilIP)
	require.Nil(t, loginErr)
	require.Equal(t, models.CodeFirstLogin, result.Code)

	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, "Novo@Example.com"))
	code := env.sender.LastCode("novo@example.com")
	require.NotEmpty(t, code)
	assert.Equal(t, pkgauth.HashToken(code), env.store.Codes[0].TokenHash)

	token, expiresAt, err := env.firstAccess.VerifyCode(ctx, "novo@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	changed, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
		Email:             "novo@example.com",
		VerificationToken: token,
		NewPassword:       newPassword,
		IPAddress:         brazilIP,
		UserAgent:         "test-agent",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CodeSuccess, changed.Code)
	assert.Equal(t, user.ID, changed.User.ID)
	require.NotNil(t, changed.Session)
	require.NotNil(t, env.sessions.ValidateSession(ctx, changed.Token))

	stored := env.store.Passwords[user.ID]
	assert.False(t, stored.IsFirstLogin)
	assert.False(t, stored.MustChange)
	assert.True(t, pkgauth.VerifyPassword(stored.PasswordHash, newPassword))

	assert.Contains(t, env.store.AuditActions(), models.AuditActionPasswordChange)

	// the old password no longer works, the new one logs in normally
	_, loginErr = env.attempt("novo@example.com", testPassword, brazilIP)
	require.NotNil(t, loginErr)
	assert.Equal(t, models.CodeInvalidCredentials, loginErr.Code)

	result, loginErr = env.attempt("novo@example.com", newPassword, brazilIP)
	require.Nil(t, loginErr)
	assert.Equal(t, models.CodeSuccess, result.Code)
}

func TestFirstAccess_SendIgnoresIneligibleEmails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "ativo@example.com", false)

	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, "ghost@example.com"))
	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, "ativo@example.com"))

	assert.Empty(t, env.sender.Codes)
	assert.Empty(t, env.store.Codes)
}

func TestFirstAccess_SendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "novo@example.com", true)
	env.sender.SendFunc = func(ctx context.Context, email, name, code string, expiresAt time.Time) error {
		return errors.New("ses unavailable")
	}

	err := env.firstAccess.SendVerificationCode(context.Background(), "novo@example.com")
	assert.Error(t, err)
}

func TestFirstAccess_VerifyCodeRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "novo@example.com", true)

	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, "novo@example.com"))
	code := env.sender.LastCode("novo@example.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	tests := []struct {
		name  string
		email string
		code  string
	}{
		{"wrong code", "novo@example.com", wrong},
		{"too short", "novo@example.com", "123"},
		{"not numeric", "novo@example.com", "12a456"},
		{"unknown email", "ghost@example.com", code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.firstAccess.VerifyCode(ctx, tt.email, tt.code)
			assert.ErrorIs(t, err, models.ErrInvalidVerificationCode)
		})
	}

	// the right code still works after failed tries, and only once
	_, _, err := env.firstAccess.VerifyCode(ctx, "novo@example.com", code)
	require.NoError(t, err)
	_, _, err = env.firstAccess.VerifyCode(ctx, "novo@example.com", code)
	assert.ErrorIs(t, err, models.ErrInvalidVerificationCode)
}

func TestFirstAccess_ExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "novo@example.com", true)

	require.NoError(t, env.firstAccess.SendVerificationCode(ctx, "novo@example.com"))
	code := env.sender.LastCode("novo@example.com")

	env.clock.Advance(15 * time.Minute)

	_, _, err := env.firstAccess.VerifyCode(ctx, "novo@example.com", code)
	assert.ErrorIs(t, err, models.ErrInvalidVerificationCode)
}

func TestFirstAccess_ChangePasswordRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "novo@example.com", true)
	other := env.addUser(t, "outro@example.com", true)

	token := verifiedToken(t, env, "novo@example.com")

	t.Run("weak password", func(t *testing.T) {
		_, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
			Email: "novo@example.com", VerificationToken: token, NewPassword: "fraca",
		})
		var validationErr *pkgauth.PasswordValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.NotEmpty(t, validationErr.Errors)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
			Email: "novo@example.com", VerificationToken: "not-a-token", NewPassword: newPassword,
		})
		assert.ErrorIs(t, err, models.ErrInvalidVerificationToken)
	})

	t.Run("email mismatch", func(t *testing.T) {
		_, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
			Email: other.Email, VerificationToken: token, NewPassword: newPassword,
		})
		assert.ErrorIs(t, err, models.ErrInvalidVerificationToken)
	})

	t.Run("signed token without a stored reset", func(t *testing.T) {
		forged, _, err := env.firstAccess.tokens.Issue(other.ID, other.Email)
		require.NoError(t, err)

		_, err = env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
			Email: other.Email, VerificationToken: forged, NewPassword: newPassword,
		})
		assert.ErrorIs(t, err, models.ErrInvalidVerificationToken)
		assert.True(t, env.store.Passwords[other.ID].IsFirstLogin)
	})

	// none of the failures consumed the token
	_, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
		Email: "NOVO@example.com", VerificationToken: token, NewPassword: newPassword,
	})
	require.NoError(t, err)

	t.Run("token reuse", func(t *testing.T) {
		_, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
			Email: "novo@example.com", VerificationToken: token, NewPassword: "OutraSenha#2025y",
		})
		assert.ErrorIs(t, err, models.ErrNotFirstLogin)
	})
}

func TestFirstAccess_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "novo@example.com", true)
	token := verifiedToken(t, env, "novo@example.com")
	env.store.SetActive(user.ID, false)

	_, err := env.firstAccess.ChangePassword(context.Background(), ChangePasswordRequest{
		Email: "novo@example.com", VerificationToken: token, NewPassword: newPassword,
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestFirstAccess_RevokesExistingSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "novo@example.com", true)

	_, oldToken, err := env.sessions.CreateSession(ctx, user.ID, brazilIP, "other-device")
	require.NoError(t, err)

	token := verifiedToken(t, env, "novo@example.com")
	result, err := env.firstAccess.ChangePassword(ctx, ChangePasswordRequest{
		Email: "novo@example.com", VerificationToken: token, NewPassword: newPassword,
	})
	require.NoError(t, err)

	assert.Nil(t, env.sessions.ValidateSession(ctx, oldToken))
	assert.NotNil(t, env.sessions.ValidateSession(ctx, result.Token))
}
