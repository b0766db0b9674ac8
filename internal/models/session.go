package models

import "time"

// Session binds the SHA-256 hash of an opaque bearer token to a user.
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	TokenHash    string     `json:"-"` // never exposed; the raw token is never stored
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
	IPAddress    *string    `json:"ipAddress,omitempty"`
	UserAgent    *string    `json:"userAgent,omitempty"`
	Location     *string    `json:"location,omitempty"`
	IsActive     bool       `json:"isActive"`
}

// IsExpired reports whether the absolute lifetime has elapsed at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsIdle reports whether the session has been unused for at least idleTimeout.
func (s *Session) IsIdle(now time.Time, idleTimeout time.Duration) bool {
	return now.Sub(s.LastActivity) >= idleTimeout
}

// IsRevoked reports whether the session reached its terminal revoked state
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil || !s.IsActive
}

// AuthenticatedSession is the result of a successful session validation
type AuthenticatedSession struct {
	Session *Session
	User    *User
}
