package models

import "time"

// LoginAttempt is one submitted credential check. Rows are append-only and only
// used to compute rolling failure counts per email.
type LoginAttempt struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	IPAddress   string    `json:"ipAddress"`
	Success     bool      `json:"success"`
	Country     *string   `json:"country,omitempty"`
	City        *string   `json:"city,omitempty"`
	UserAgent   *string   `json:"userAgent,omitempty"`
	ErrorReason *string   `json:"errorReason,omitempty"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// AttemptMeta carries the best-effort context stored with an attempt
type AttemptMeta struct {
	Country     string
	City        string
	UserAgent   string
	ErrorReason string
}
