package models

import "time"

// BlockedUser is a manual or automatic account lock. BlockedBy is nil for automatic blocks.
type BlockedUser struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	BlockedBy *string   `json:"blockedBy,omitempty"`
	BlockedAt time.Time `json:"blockedAt"`
	IsActive  bool      `json:"isActive"`
}

// IsAutomatic reports whether the block was created by the rate limiter.
func (b *BlockedUser) IsAutomatic() bool {
	return b.BlockedBy == nil
}

// BlockedIP is an IP blocklist entry. A nil ExpiresAt means permanent.
type BlockedIP struct {
	ID        string     `json:"id"`
	IPAddress string     `json:"ipAddress"`
	Reason    string     `json:"reason"`
	BlockedBy *string    `json:"blockedBy,omitempty"`
	BlockedAt time.Time  `json:"blockedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsActive  bool       `json:"isActive"`
}

// IsEffective reports whether the entry blocks the IP at now.
func (b *BlockedIP) IsEffective(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// WhitelistedIP exempts an address from the geo restriction only.
type WhitelistedIP struct {
	ID          string    `json:"id"`
	IPAddress   string    `json:"ipAddress"`
	Description string    `json:"description"`
	AddedBy     *string   `json:"addedBy,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
	IsActive    bool      `json:"isActive"`
}
