package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// AuditServiceInterface defines the login audit queries
type AuditServiceInterface interface {
	List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error)
	Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error)
}

// AuditHandler handles login audit HTTP requests
type AuditHandler struct {
	service AuditServiceInterface
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// ListLoginAuditResponse is a page of the login audit trail
type ListLoginAuditResponse struct {
	Logs   []*models.LoginAudit `json:"logs"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// parseAuditFilter reads userId, action, success, startDate, endDate, limit
// and offset. Malformed values are ignored.
func parseAuditFilter(r *http.Request) models.LoginAuditFilter {
	q := r.URL.Query()
	filter := models.LoginAuditFilter{
		UserID: q.Get("userId"),
		Action: q.Get("action"),
		Limit:  50,
	}

	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Success = &b
		}
	}
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndDate = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if v := q.Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	return filter
}

// ListLoginAudit handles GET /admin/audit/login
func (h *AuditHandler) ListLoginAudit(w http.ResponseWriter, r *http.Request) {
	filter := parseAuditFilter(r)

	logs, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao consultar auditoria")
		return
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	pkghttp.WriteJSON(w, http.StatusOK, ListLoginAuditResponse{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// LoginAuditStats handles GET /admin/audit/login/stats
func (h *AuditHandler) LoginAuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao consultar auditoria")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}
