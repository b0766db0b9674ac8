package auth

import (
	"fmt"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VerificationTokenIssuer signs the short-lived tokens that authorize a
// first-access password change after the emailed code was verified.
type VerificationTokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewVerificationTokenIssuer creates a new VerificationTokenIssuer
func NewVerificationTokenIssuer(secret string, expiry time.Duration) *VerificationTokenIssuer {
	return &VerificationTokenIssuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue creates a signed password-change token for the user
func (vi *VerificationTokenIssuer) Issue(userID, email string) (string, time.Time, error) {
	now := vi.now()
	expiresAt := now.Add(vi.expiry)

	claims := &models.VerificationClaims{
		Type:  models.TokenTypePasswordChange,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(vi.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign verification token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Parse verifies signature, expiry and type, and returns the claims.
// Every failure maps to models.ErrInvalidVerificationToken.
func (vi *VerificationTokenIssuer) Parse(tokenString string) (*models.VerificationClaims, error) {
	claims := &models.VerificationClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return vi.secret, nil
	}, jwt.WithTimeFunc(vi.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidVerificationToken, err)
	}

	if !token.Valid || claims.Type != models.TokenTypePasswordChange || claims.Subject == "" {
		return nil, models.ErrInvalidVerificationToken
	}

	return claims, nil
}
