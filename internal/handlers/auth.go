package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/services"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// LoginServiceInterface runs the login pipeline
type LoginServiceInterface interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

// SessionServiceInterface defines the session operations used by the auth endpoints
type SessionServiceInterface interface {
	ValidateSession(ctx context.Context, token string) *models.AuthenticatedSession
	Logout(ctx context.Context, token, ipAddress, userAgent string) error
	RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int64, error)
}

// AuthHandler handles login, session check and logout
type AuthHandler struct {
	login    LoginServiceInterface
	sessions SessionServiceInterface
	ipConfig *pkghttp.IPConfig
	cookies  auth.CookieConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(login LoginServiceInterface, sessions SessionServiceInterface, ipConfig *pkghttp.IPConfig, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		sessions: sessions,
		ipConfig: ipConfig,
		cookies:  cookies,
		logger:   logger,
		now:      time.Now,
	}
}

// LoginRequest represents the request body for login. Presence is checked by
// the login pipeline so that empty fields are audited like any rejection.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of an accepted login
type LoginResponse struct {
	IsFirstLogin bool                `json:"isFirstLogin"`
	Code         string              `json:"code,omitempty"`
	User         *models.UserProfile `json:"user"`
	Message      string              `json:"message,omitempty"`
}

// SessionResponse is the body of the session check
type SessionResponse struct {
	User *models.UserProfile `json:"user"`
}

// loginMessages holds the user-facing text per outcome code
var loginMessages = map[string]string{
	models.CodeInvalidCredentials: "Credenciais inválidas",
	models.CodeIPBlocked:          "Acesso bloqueado para este endereço IP",
	models.CodeCountryBlocked:     "Acesso permitido apenas a partir do Brasil",
	models.CodeUserBlocked:        "Usuário bloqueado. Entre em contato com o administrador",
	models.CodeSystemError:        "Erro interno do servidor",
}

const firstLoginMessage = "Primeiro acesso detectado. Um código será enviado para seu email."

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Corpo da requisição inválido")
		return
	}

	result, err := h.login.Login(r.Context(), services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		var loginErr *models.LoginError
		if !errors.As(err, &loginErr) {
			loginErr = models.NewLoginError(models.CodeSystemError)
		}
		h.writeLoginError(w, loginErr)
		return
	}

	if result.Code == models.CodeFirstLogin {
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
			IsFirstLogin: true,
			Code:         models.CodeFirstLogin,
			User:         result.User.Profile(),
			Message:      firstLoginMessage,
		})
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		IsFirstLogin: false,
		User:         result.User.Profile(),
	})
}

// writeLoginError renders a rejection. The minutes remaining of a cooldown
// are derived from cooldownUntil at render time.
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, loginErr *models.LoginError) {
	resp := pkghttp.ErrorResponse{
		Error:         pkghttp.ErrorCategory(loginErr.Status),
		Message:       loginMessages[loginErr.Code],
		Code:          loginErr.Code,
		AttemptsLeft:  loginErr.AttemptsLeft,
		CooldownUntil: loginErr.CooldownUntil,
		Country:       loginErr.Country,
	}

	if loginErr.Code == models.CodeRateLimit {
		minutes := 0
		if loginErr.CooldownUntil != nil {
			minutes = minutesUntil(*loginErr.CooldownUntil, h.now())
		}
		resp.MinutesRemaining = &minutes
		resp.Message = fmt.Sprintf("Muitas tentativas de login. Tente novamente em %d minutos", minutes)
	}

	pkghttp.WriteErrorResponse(w, loginErr.Status, resp)
}

// minutesUntil rounds the remaining time up to whole minutes, never below zero
func minutesUntil(t, now time.Time) int {
	remaining := t.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

// Session handles GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GetSessionCookie(r)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Não autenticado")
		return
	}

	authenticated := h.sessions.ValidateSession(r.Context(), token)
	if authenticated == nil {
		pkghttp.WriteUnauthorized(w, "Sessão inválida")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{User: authenticated.User.Profile()})
}

// Logout handles POST /auth/logout. The cookie is cleared whatever the
// revoke outcome.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := auth.GetSessionCookie(r); err == nil {
		ip := pkghttp.ExtractClientIP(r, h.ipConfig)
		if err := h.sessions.Logout(r.Context(), token, ip, r.Header.Get("User-Agent")); err != nil {
			h.logger.Error("logout failed", slog.Any("error", err))
		}
	}

	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// LogoutAll handles POST /auth/logout-all: every other session of the caller
// is revoked and the current one is kept.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	authenticated := auth.GetSessionFromContext(r)
	if authenticated == nil {
		pkghttp.WriteUnauthorized(w, "Não autenticado")
		return
	}

	n, err := h.sessions.RevokeAllUserSessions(r.Context(), authenticated.User.ID, authenticated.Session.ID)
	if err != nil {
		h.logger.Error("failed to revoke user sessions", slog.String("user_id", authenticated.User.ID), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "revoked": n})
}
