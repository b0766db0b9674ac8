package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// First-access flow errors
	ErrInvalidVerificationCode  = errors.New("invalid or expired verification code")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrNotFirstLogin            = errors.New("user is not in first-login state")
)

// Login outcome codes surfaced to clients
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeIPBlocked          = "IP_BLOCKED"
	CodeCountryBlocked     = "COUNTRY_BLOCKED"
	CodeRateLimit          = "RATE_LIMIT"
	CodeUserBlocked        = "USER_BLOCKED"
	CodeFirstLogin         = "FIRST_LOGIN"
	CodeSystemError        = "SYSTEM_ERROR"
	CodeSuccess            = "SUCCESS"
)

// LoginError is a rejected login. Every rejection carries a machine-readable code.
type LoginError struct {
	Code          string
	Status        int
	AttemptsLeft  *int
	CooldownUntil *time.Time
	Country       string
	Err           error // underlying cause for SYSTEM_ERROR, never rendered
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login rejected: %s: %v", e.Code, e.Err)
	}
	return "login rejected: " + e.Code
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// NewLoginError builds a rejection with the status mapped from the code.
func NewLoginError(code string) *LoginError {
	return &LoginError{Code: code, Status: StatusForCode(code)}
}

// StatusForCode maps a login outcome code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeIPBlocked, CodeCountryBlocked, CodeUserBlocked:
		return http.StatusForbidden
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeFirstLogin, CodeSuccess:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
