package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/services"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// FirstAccessServiceInterface defines the first-login completion flow
type FirstAccessServiceInterface interface {
	SendVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (string, time.Time, error)
	ChangePassword(ctx context.Context, req services.ChangePasswordRequest) (*services.LoginResult, error)
}

// FirstAccessHandler exposes the verification-code and change-password endpoints
type FirstAccessHandler struct {
	service  FirstAccessServiceInterface
	ipConfig *pkghttp.IPConfig
	cookies  auth.CookieConfig
	logger   *slog.Logger
}

// NewFirstAccessHandler creates a new FirstAccessHandler
func NewFirstAccessHandler(service FirstAccessServiceInterface, ipConfig *pkghttp.IPConfig, cookies auth.CookieConfig, logger *slog.Logger) *FirstAccessHandler {
	return &FirstAccessHandler{
		service:  service,
		ipConfig: ipConfig,
		cookies:  cookies,
		logger:   logger,
	}
}

// SendVerificationCodeRequest represents the request body for sending a code
type SendVerificationCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *SendVerificationCodeRequest) normalize() { r.Email = strings.TrimSpace(r.Email) }

// VerifyCodeRequest represents the request body for verifying a code
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyCodeRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

// VerifyCodeResponse carries the verification token
type VerifyCodeResponse struct {
	Message           string    `json:"message"`
	VerificationToken string    `json:"verificationToken"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// ChangePasswordRequest represents the request body for the password change
type ChangePasswordRequest struct {
	Email             string `json:"email" validate:"required,email"`
	VerificationToken string `json:"verificationToken" validate:"required"`
	NewPassword       string `json:"newPassword" validate:"required"`
}

func (r *ChangePasswordRequest) normalize() { r.Email = strings.TrimSpace(r.Email) }

// ChangePasswordResponse is the body of a completed first access
type ChangePasswordResponse struct {
	Message string              `json:"message"`
	User    *models.UserProfile `json:"user"`
}

const sendCodeMessage = "Se o email estiver cadastrado para primeiro acesso, um código foi enviado"

// SendVerificationCode handles POST /auth/send-verification-code. The response
// does not depend on whether the email qualified.
func (h *FirstAccessHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req SendVerificationCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SendVerificationCode(r.Context(), req.Email); err != nil {
		h.logger.Error("failed to send verification code", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Erro ao enviar email. Tente novamente.")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": sendCodeMessage})
}

// VerifyCode handles POST /auth/verify-code
func (h *FirstAccessHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, expiresAt, err := h.service.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, models.ErrInvalidVerificationCode) {
			pkghttp.WriteErrorResponse(w, http.StatusUnauthorized, pkghttp.ErrorResponse{
				Error:   "unauthorized",
				Message: "Código inválido ou expirado",
				Code:    "INVALID_CODE",
			})
			return
		}
		h.logger.Error("failed to verify code", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyCodeResponse{
		Message:           "Código verificado com sucesso",
		VerificationToken: token,
		ExpiresAt:         expiresAt,
	})
}

// ChangePassword handles POST /auth/change-password and opens a session on success
func (h *FirstAccessHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.ChangePassword(r.Context(), services.ChangePasswordRequest{
		Email:             req.Email,
		VerificationToken: req.VerificationToken,
		NewPassword:       req.NewPassword,
		IPAddress:         pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:         r.Header.Get("User-Agent"),
	})
	if err != nil {
		h.writeChangePasswordError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, ChangePasswordResponse{
		Message: "Senha alterada com sucesso",
		User:    result.User.Profile(),
	})
}

func (h *FirstAccessHandler) writeChangePasswordError(w http.ResponseWriter, err error) {
	var validationErr *pkgauth.PasswordValidationError
	switch {
	case errors.As(err, &validationErr):
		pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
			Error:   "bad_request",
			Message: "Senha fraca",
			Code:    "WEAK_PASSWORD",
			Details: validationErr.Errors,
		})
	case errors.Is(err, models.ErrInvalidVerificationToken):
		pkghttp.WriteErrorResponse(w, http.StatusUnauthorized, pkghttp.ErrorResponse{
			Error:   "unauthorized",
			Message: "Token inválido ou expirado",
			Code:    "INVALID_TOKEN",
		})
	case errors.Is(err, models.ErrNotFirstLogin):
		pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
			Error:   "bad_request",
			Message: "Esta ação é apenas para primeiro acesso",
			Code:    "NOT_FIRST_LOGIN",
		})
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Usuário inativo")
	default:
		h.logger.Error("failed to change password", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
	}
}
