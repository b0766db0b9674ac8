package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypePasswordChange marks verification tokens that authorize a first-access password change
const TokenTypePasswordChange = "password_change"

// VerificationClaims is the payload of the short-lived token returned by verify-code.
type VerificationClaims struct {
	Type  string `json:"typ"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
