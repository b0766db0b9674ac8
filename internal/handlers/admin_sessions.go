package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// AdminSessionServiceInterface defines the administrative session operations
type AdminSessionServiceInterface interface {
	ListActiveSessions(ctx context.Context, userID string) ([]*models.Session, error)
	ForceLogout(ctx context.Context, sessionID, actorID, reason string) error
	ForceLogoutUser(ctx context.Context, userID, actorID, reason string) (int64, error)
}

// AdminSessionHandler handles the admin sessions view
type AdminSessionHandler struct {
	service AdminSessionServiceInterface
}

// NewAdminSessionHandler creates a new AdminSessionHandler
func NewAdminSessionHandler(service AdminSessionServiceInterface) *AdminSessionHandler {
	return &AdminSessionHandler{service: service}
}

// RevokeSessionRequest targets one session, or every session of a user when
// only userId is given
type RevokeSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required_without=UserID"`
	UserID    string `json:"userId" validate:"required_without=SessionID"`
	Reason    string `json:"reason" validate:"max=500"`
}

// ListSessions handles GET /admin/sessions?userId=
func (h *AdminSessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListActiveSessions(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao listar sessões")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// RevokeSession handles POST /admin/sessions/revoke
func (h *AdminSessionHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	var req RevokeSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor := actorID(r)

	if req.SessionID != "" {
		if err := h.service.ForceLogout(r.Context(), req.SessionID, actor, req.Reason); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				pkghttp.WriteNotFound(w, "Sessão não encontrada")
				return
			}
			pkghttp.WriteInternalError(w, "Erro ao revogar sessão")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "revoked": 1})
		return
	}

	n, err := h.service.ForceLogoutUser(r.Context(), req.UserID, actor, req.Reason)
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao revogar sessões")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "revoked": n})
}
