package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/handlers"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

func TestListLoginAudit_ParsesFilter(t *testing.T) {
	var got models.LoginAuditFilter
	service := &handlers.MockAuditService{
		ListFunc: func(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
			got = filter
			return []*models.LoginAudit{{ID: "l1", Success: true, ActionType: models.AuditActionLogin}}, 42, nil
		},
	}
	handler := handlers.NewAuditHandler(service)

	req := httptest.NewRequest("GET", "/admin/audit/login?userId=user-1&action=LOGIN&success=false&startDate=2025-01-01T00:00:00Z&limit=10&offset=20", nil)
	w := httptest.NewRecorder()
	handler.ListLoginAudit(w, req)

	var resp handlers.ListLoginAuditResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(42), resp.Total)
	assert.Equal(t, "42", w.Header().Get("X-Total-Count"))
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 20, resp.Offset)

	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "LOGIN", got.Action)
	require.NotNil(t, got.Success)
	assert.False(t, *got.Success)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, 2025, got.StartDate.Year())
	assert.Nil(t, got.EndDate)
}

func TestListLoginAudit_Defaults(t *testing.T) {
	var got models.LoginAuditFilter
	service := &handlers.MockAuditService{
		ListFunc: func(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
			got = filter
			return nil, 0, nil
		},
	}
	handler := handlers.NewAuditHandler(service)

	w := httptest.NewRecorder()
	handler.ListLoginAudit(w, httptest.NewRequest("GET", "/admin/audit/login?limit=abc&success=maybe", nil))

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, 50, got.Limit)
	assert.Equal(t, 0, got.Offset)
	assert.Nil(t, got.Success)
}

func TestLoginAuditStats(t *testing.T) {
	service := &handlers.MockAuditService{
		StatsFunc: func(ctx context.Context, userID string) (*models.LoginAuditStats, error) {
			if userID == "broken" {
				return nil, errors.New("db down")
			}
			return &models.LoginAuditStats{TotalLogins: 4, SuccessLogins: 3, FailedLogins: 1, UniqueIPs: 2, SuccessRate: 75}, nil
		},
	}
	handler := handlers.NewAuditHandler(service)

	w := httptest.NewRecorder()
	handler.LoginAuditStats(w, httptest.NewRequest("GET", "/admin/audit/login/stats", nil))
	var stats models.LoginAuditStats
	handlers.AssertJSONResponse(t, w, 200, &stats)
	assert.Equal(t, float64(75), stats.SuccessRate)

	w = httptest.NewRecorder()
	handler.LoginAuditStats(w, httptest.NewRequest("GET", "/admin/audit/login/stats?userId=broken", nil))
	handlers.AssertErrorResponse(t, w, 500, "internal_error")
}
