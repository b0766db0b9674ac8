package models

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Validity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{
		LastActivity: now.Add(-30 * time.Minute),
		ExpiresAt:    now.Add(time.Hour),
		IsActive:     true,
	}

	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(s.ExpiresAt), "expiry is inclusive")
	assert.False(t, s.IsIdle(now, time.Hour))
	assert.True(t, s.IsIdle(now, 30*time.Minute), "idle boundary is inclusive")
	assert.False(t, s.IsRevoked())

	revokedAt := now
	s.RevokedAt = &revokedAt
	assert.True(t, s.IsRevoked())

	s.RevokedAt = nil
	s.IsActive = false
	assert.True(t, s.IsRevoked())
}

func TestUser_IsAdmin(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{role: "ADMIN", expected: true},
		{role: "admin", expected: true},
		{role: "Admin", expected: true},
		{role: "USER", expected: false},
		{role: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			u := &User{Role: tt.role}
			assert.Equal(t, tt.expected, u.IsAdmin())
		})
	}
}

func TestBlockedIP_IsEffective(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&BlockedIP{IsActive: true}).IsEffective(now))
	assert.True(t, (&BlockedIP{IsActive: true, ExpiresAt: &future}).IsEffective(now))
	assert.False(t, (&BlockedIP{IsActive: true, ExpiresAt: &past}).IsEffective(now))
	assert.False(t, (&BlockedIP{IsActive: false}).IsEffective(now))
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusForCode(CodeInvalidCredentials))
	assert.Equal(t, http.StatusForbidden, StatusForCode(CodeIPBlocked))
	assert.Equal(t, http.StatusForbidden, StatusForCode(CodeCountryBlocked))
	assert.Equal(t, http.StatusForbidden, StatusForCode(CodeUserBlocked))
	assert.Equal(t, http.StatusTooManyRequests, StatusForCode(CodeRateLimit))
	assert.Equal(t, http.StatusOK, StatusForCode(CodeFirstLogin))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode(CodeSystemError))
}

func TestLoginError_Unwrap(t *testing.T) {
	cause := errors.New("db down")
	err := &LoginError{Code: CodeSystemError, Status: http.StatusInternalServerError, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeSystemError)

	var loginErr *LoginError
	assert.True(t, errors.As(error(err), &loginErr))
}

func TestVerificationExpiry(t *testing.T) {
	now := time.Now()
	code := &EmailVerificationCode{ExpiresAt: now.Add(15 * time.Minute)}
	assert.False(t, code.IsExpired(now))
	assert.True(t, code.IsExpired(code.ExpiresAt))
	assert.False(t, code.IsUsed())

	reset := &PasswordReset{ExpiresAt: now.Add(time.Minute)}
	assert.True(t, reset.IsValid(now))
	assert.False(t, reset.IsValid(now.Add(time.Minute)))

	used := now
	reset.UsedAt = &used
	assert.False(t, reset.IsValid(now))
}
