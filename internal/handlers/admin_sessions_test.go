package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/handlers"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

func TestListSessions_FiltersByUser(t *testing.T) {
	var gotUser string
	service := &handlers.MockSessionService{
		ListActiveSessionsFunc: func(ctx context.Context, userID string) ([]*models.Session, error) {
			gotUser = userID
			return []*models.Session{{ID: "s1", UserID: userID, TokenHash: "secret-hash", IsActive: true}}, nil
		},
	}
	handler := handlers.NewAdminSessionHandler(service)

	w := httptest.NewRecorder()
	handler.ListSessions(w, httptest.NewRequest("GET", "/admin/sessions?userId=user-1", nil))

	var resp struct {
		Sessions []*models.Session `json:"sessions"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "user-1", gotUser)
	assert.NotContains(t, w.Body.String(), "secret-hash")
}

func TestRevokeSession_BySessionID(t *testing.T) {
	var gotSession, gotActor, gotReason string
	service := &handlers.MockSessionService{
		ForceLogoutFunc: func(ctx context.Context, sessionID, actorID, reason string) error {
			gotSession, gotActor, gotReason = sessionID, actorID, reason
			return nil
		},
	}
	handler := handlers.NewAdminSessionHandler(service)

	req := handlers.NewTestRequest(t, "POST", "/admin/sessions/revoke", handlers.RevokeSessionRequest{SessionID: "s1", Reason: "dispositivo perdido"})
	req = handlers.WithSessionContext(req, adminUser(), "s-admin")
	w := httptest.NewRecorder()
	handler.RevokeSession(w, req)

	handlers.AssertJSONResponse(t, w, 200, nil)
	assert.Equal(t, "s1", gotSession)
	assert.Equal(t, "admin-1", gotActor)
	assert.Equal(t, "dispositivo perdido", gotReason)
}

func TestRevokeSession_UnknownSession(t *testing.T) {
	handler := handlers.NewAdminSessionHandler(&handlers.MockSessionService{})

	w := httptest.NewRecorder()
	handler.RevokeSession(w, handlers.NewTestRequest(t, "POST", "/admin/sessions/revoke", handlers.RevokeSessionRequest{SessionID: "missing"}))
	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestRevokeSession_AllForUser(t *testing.T) {
	service := &handlers.MockSessionService{
		ForceLogoutUserFunc: func(ctx context.Context, userID, actorID, reason string) (int64, error) {
			return 2, nil
		},
	}
	handler := handlers.NewAdminSessionHandler(service)

	w := httptest.NewRecorder()
	handler.RevokeSession(w, handlers.NewTestRequest(t, "POST", "/admin/sessions/revoke", handlers.RevokeSessionRequest{UserID: "user-1"}))

	var resp struct {
		Revoked int64 `json:"revoked"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(2), resp.Revoked)
}

func TestRevokeSession_RequiresTarget(t *testing.T) {
	handler := handlers.NewAdminSessionHandler(&handlers.MockSessionService{})

	w := httptest.NewRecorder()
	handler.RevokeSession(w, handlers.NewTestRequest(t, "POST", "/admin/sessions/revoke", handlers.RevokeSessionRequest{Reason: "x"}))
	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
