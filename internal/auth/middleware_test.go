package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

type stubValidator struct {
	sessions map[string]*models.AuthenticatedSession
	calls    int
}

func (s *stubValidator) ValidateSession(_ context.Context, token string) *models.AuthenticatedSession {
	s.calls++
	return s.sessions[token]
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authenticated(role string) *models.AuthenticatedSession {
	return &models.AuthenticatedSession{
		Session: &models.Session{ID: "s1", UserID: "u1"},
		User:    &models.User{ID: "u1", Email: "user@example.com", Role: role, IsActive: true},
	}
}

func TestRequireSession_MissingCookie(t *testing.T) {
	validator := &stubValidator{}
	handler := RequireSession(validator)(okHandler(t))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, validator.calls)
}

func TestRequireSession_InvalidToken(t *testing.T) {
	validator := &stubValidator{sessions: map[string]*models.AuthenticatedSession{}}
	handler := RequireSession(validator)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, validator.calls)
}

func TestRequireSession_InjectsSession(t *testing.T) {
	session := authenticated(models.RoleUser)
	validator := &stubValidator{sessions: map[string]*models.AuthenticatedSession{"tok": session}}

	var seen *models.AuthenticatedSession
	handler := RequireSession(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.User.ID)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		session *models.AuthenticatedSession
		want    int
	}{
		{"no session", nil, http.StatusUnauthorized},
		{"regular user", authenticated(models.RoleUser), http.StatusForbidden},
		{"admin", authenticated(models.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
			if tt.session != nil {
				req = req.WithContext(WithSession(req.Context(), tt.session))
			}
			w := httptest.NewRecorder()
			RequireAdmin(okHandler(t)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "raw-token", CookieConfig{Secure: true, MaxAge: 7 * 24 * time.Hour})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "raw-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSessionCookie(w, CookieConfig{})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, parseSameSite("strict"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite(""))
}
