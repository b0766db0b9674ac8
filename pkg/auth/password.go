package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. They match the defaults of the node argon2 binding so
// hashes created by earlier deployments keep verifying.
const (
	Argon2Memory      = 64 * 1024 // KiB
	Argon2Iterations  = 3
	Argon2Parallelism = 4
	Argon2SaltLength  = 16
	Argon2KeyLength   = 32

	TokenKeyLength         = 32 // 256 bits
	VerificationCodeDigits = 6
	MinPasswordLen         = 8
	MaxPasswordLen         = 128
)

var (
	ErrInvalidHash         = errors.New("invalid argon2 hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// PasswordValidationError holds the policy violations of a candidate password.
// Messages are in Portuguese and safe to show to the user who typed the password.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "password does not meet the strength policy"
}

// Common weak passwords to reject (substring match, case-insensitive)
var commonPasswords = []string{
	"password",
	"12345678",
	"password123",
	"admin123",
	"qwerty123",
	"senha123",
	"123456789",
	"abc123456",
}

// argon2Params are the parameters encoded in a PHC string
type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// HashPassword derives an Argon2id hash encoded as a PHC string:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, Argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, Argon2Iterations, Argon2Memory, Argon2Parallelism, Argon2KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Iterations, Argon2Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// The key comparison is constant time. Malformed hashes never match.
func VerifyPassword(encodedHash, password string) bool {
	ok, err := ComparePassword(encodedHash, password)
	return err == nil && ok
}

// ComparePassword is VerifyPassword with the decode error exposed.
func ComparePassword(encodedHash, password string) (bool, error) {
	params, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeHash(encodedHash string) (*argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return nil, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}

	return p, salt, key, nil
}

// GenerateSessionToken returns 256 bits of randomness, base64url encoded without padding.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, TokenKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashToken returns the hex SHA-256 of a bearer token or one-time code.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateVerificationCode returns a uniformly random 6-digit numeric code.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", VerificationCodeDigits, n.Int64()), nil
}

// ValidatePassword enforces the password strength policy
func ValidatePassword(password string) error {
	errs := make([]string, 0)

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("A senha deve ter no mínimo %d caracteres", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("A senha deve ter no máximo %d caracteres", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasLower {
		errs = append(errs, "A senha deve conter pelo menos uma letra minúscula")
	}
	if !hasUpper {
		errs = append(errs, "A senha deve conter pelo menos uma letra maiúscula")
	}
	if !hasDigit {
		errs = append(errs, "A senha deve conter pelo menos um número")
	}
	if !hasSpecial {
		errs = append(errs, "A senha deve conter pelo menos um caractere especial (!@#$%^&* etc)")
	}

	if IsCommonPassword(password) {
		errs = append(errs, "Evite senhas comuns ou previsíveis")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}

// IsCommonPassword reports whether password contains a well-known weak password.
func IsCommonPassword(password string) bool {
	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			return true
		}
	}
	return false
}
