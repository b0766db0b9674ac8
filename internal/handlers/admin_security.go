package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// IPAccessServiceInterface defines the IP blocklist and whitelist administration
type IPAccessServiceInterface interface {
	Block(ctx context.Context, ip, reason, actorID string, expiresAt *time.Time) (*models.BlockedIP, error)
	Unblock(ctx context.Context, ip, actorID string) error
	List(ctx context.Context) ([]*models.BlockedIP, error)
	Whitelist(ctx context.Context, ip, description, actorID string) (*models.WhitelistedIP, error)
	RemoveFromWhitelist(ctx context.Context, ip, actorID string) error
	ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error)
}

// AccountBlockServiceInterface defines the account blocklist administration
type AccountBlockServiceInterface interface {
	Block(ctx context.Context, email, reason, actorID string) (*models.BlockedUser, error)
	Unblock(ctx context.Context, email, actorID string) error
	List(ctx context.Context) ([]*models.BlockedUser, error)
	GetBlockInfo(ctx context.Context, email string) (*models.BlockedUser, error)
}

// LoginAttemptLister returns the latest login attempts
type LoginAttemptLister interface {
	ListRecentAttempts(ctx context.Context) ([]*models.LoginAttempt, error)
}

// SecurityHandler handles the admin security views
type SecurityHandler struct {
	ipAccess IPAccessServiceInterface
	accounts AccountBlockServiceInterface
	attempts LoginAttemptLister
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(ipAccess IPAccessServiceInterface, accounts AccountBlockServiceInterface, attempts LoginAttemptLister) *SecurityHandler {
	return &SecurityHandler{
		ipAccess: ipAccess,
		accounts: accounts,
		attempts: attempts,
	}
}

// BlockIPRequest represents the request body for blocking an IP
type BlockIPRequest struct {
	IPAddress string     `json:"ipAddress" validate:"required,ip"`
	Reason    string     `json:"reason" validate:"required,max=500"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// WhitelistIPRequest represents the request body for whitelisting an IP
type WhitelistIPRequest struct {
	IPAddress   string `json:"ipAddress" validate:"required,ip"`
	Description string `json:"description" validate:"max=500"`
}

// BlockUserRequest represents the request body for blocking an account
type BlockUserRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func actorID(r *http.Request) string {
	if authenticated := auth.GetSessionFromContext(r); authenticated != nil {
		return authenticated.User.ID
	}
	return ""
}

// pathParam returns the unescaped chi URL parameter
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func writeServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, notFoundMessage)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Dados inválidos")
	default:
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
	}
}

// ListBlockedIPs handles GET /admin/security/blocked-ips
func (h *SecurityHandler) ListBlockedIPs(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.ipAccess.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"blockedIps": blocks})
}

// BlockIP handles POST /admin/security/blocked-ips
func (h *SecurityHandler) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req BlockIPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	block, err := h.ipAccess.Block(r.Context(), req.IPAddress, req.Reason, actorID(r), req.ExpiresAt)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, block)
}

// UnblockIP handles DELETE /admin/security/blocked-ips/{ip}
func (h *SecurityHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	if err := h.ipAccess.Unblock(r.Context(), pathParam(r, "ip"), actorID(r)); err != nil {
		writeServiceError(w, err, "IP não está bloqueado")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListWhitelist handles GET /admin/security/whitelist
func (h *SecurityHandler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ipAccess.ListWhitelisted(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"whitelist": entries})
}

// WhitelistIP handles POST /admin/security/whitelist
func (h *SecurityHandler) WhitelistIP(w http.ResponseWriter, r *http.Request) {
	var req WhitelistIPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.ipAccess.Whitelist(r.Context(), req.IPAddress, req.Description, actorID(r))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, entry)
}

// RemoveWhitelist handles DELETE /admin/security/whitelist/{ip}
func (h *SecurityHandler) RemoveWhitelist(w http.ResponseWriter, r *http.Request) {
	if err := h.ipAccess.RemoveFromWhitelist(r.Context(), pathParam(r, "ip"), actorID(r)); err != nil {
		writeServiceError(w, err, "IP não está na lista de permissões")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListBlockedUsers handles GET /admin/security/blocked-users
func (h *SecurityHandler) ListBlockedUsers(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"blockedUsers": blocks})
}

// GetBlockedUser handles GET /admin/security/blocked-users/{email}
func (h *SecurityHandler) GetBlockedUser(w http.ResponseWriter, r *http.Request) {
	block, err := h.accounts.GetBlockInfo(r.Context(), pathParam(r, "email"))
	if err != nil {
		writeServiceError(w, err, "Usuário não está bloqueado")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, block)
}

// BlockUser handles POST /admin/security/blocked-users
func (h *SecurityHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	var req BlockUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	block, err := h.accounts.Block(r.Context(), req.Email, req.Reason, actorID(r))
	if err != nil {
		writeServiceError(w, err, "Usuário não encontrado")
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, block)
}

// UnblockUser handles DELETE /admin/security/blocked-users/{email}
func (h *SecurityHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Unblock(r.Context(), pathParam(r, "email"), actorID(r)); err != nil {
		writeServiceError(w, err, "Usuário não está bloqueado")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListLoginAttempts handles GET /admin/security/login-attempts
func (h *SecurityHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.attempts.ListRecentAttempts(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}
