package models

import (
	"time"
)

// EmailVerificationCode is a hashed one-time code mailed during first access
type EmailVerificationCode struct {
	ID        string
	UserID    string
	TokenHash string // SHA-256 of the 6-digit code
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the code has expired at now
func (c *EmailVerificationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsUsed checks if the code has already been consumed
func (c *EmailVerificationCode) IsUsed() bool {
	return c.UsedAt != nil
}

// PasswordReset stores the hash of a verification token that authorizes one password change.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsValid checks the token is neither expired nor used at now
func (p *PasswordReset) IsValid(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}
