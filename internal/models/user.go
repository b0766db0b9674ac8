package models

import (
	"strings"
	"time"
)

// RoleAdmin is the role allowed to manage sessions and blocklists.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID                       string
	Email                    string
	Name                     *string
	Role                     string
	IsActive                 bool
	AllowInternationalAccess bool // bypasses the Brazil-only login restriction
	PictureURL               *string
	LastLoginAt              *time.Time
	LastLoginIP              *string
	LastLoginCountry         *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsAdmin reports whether the user holds the admin role (case-insensitive).
func (u *User) IsAdmin() bool {
	return strings.ToUpper(u.Role) == RoleAdmin
}

// UserPassword is the local credential record of a user.
type UserPassword struct {
	UserID            string
	PasswordHash      string
	IsFirstLogin      bool // a verification-code exchange is required before a session is issued
	MustChange        bool
	PasswordUpdatedAt *time.Time
	CreatedAt         time.Time
}

// LastLogin holds the metadata written on every successful login
type LastLogin struct {
	At      time.Time
	IP      string
	Country string
}

// UserProfile is the public view of a user returned to clients
type UserProfile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Name     *string `json:"name,omitempty"`
	Role     string  `json:"role"`
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// Profile converts the user to its public representation.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		PhotoURL: u.PictureURL,
	}
}
