package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/services"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// NewTestLogger returns a logger that discards everything
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds an authenticated session to the request context
func WithSessionContext(req *http.Request, user *models.User, sessionID string) *http.Request {
	ctx := auth.WithSession(req.Context(), &models.AuthenticatedSession{
		Session: &models.Session{ID: sessionID, UserID: user.ID, IsActive: true},
		User:    user,
	})
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockLoginService implements LoginServiceInterface for testing
type MockLoginService struct {
	LoginFunc func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Requests  []services.LoginRequest
}

func (m *MockLoginService) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	m.Requests = append(m.Requests, req)
	if m.LoginFunc == nil {
		return nil, models.NewLoginError(models.CodeInvalidCredentials)
	}
	return m.LoginFunc(ctx, req)
}

// MockSessionService implements SessionServiceInterface and AdminSessionServiceInterface for testing
type MockSessionService struct {
	ValidateSessionFunc       func(ctx context.Context, token string) *models.AuthenticatedSession
	LogoutFunc                func(ctx context.Context, token, ipAddress, userAgent string) error
	RevokeAllUserSessionsFunc func(ctx context.Context, userID, exceptSessionID string) (int64, error)
	ListActiveSessionsFunc    func(ctx context.Context, userID string) ([]*models.Session, error)
	ForceLogoutFunc           func(ctx context.Context, sessionID, actorID, reason string) error
	ForceLogoutUserFunc       func(ctx context.Context, userID, actorID, reason string) (int64, error)
}

func (m *MockSessionService) ValidateSession(ctx context.Context, token string) *models.AuthenticatedSession {
	if m.ValidateSessionFunc == nil {
		return nil
	}
	return m.ValidateSessionFunc(ctx, token)
}

func (m *MockSessionService) Logout(ctx context.Context, token, ipAddress, userAgent string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token, ipAddress, userAgent)
}

func (m *MockSessionService) RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	if m.RevokeAllUserSessionsFunc == nil {
		return 0, nil
	}
	return m.RevokeAllUserSessionsFunc(ctx, userID, exceptSessionID)
}

func (m *MockSessionService) ListActiveSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListActiveSessionsFunc == nil {
		return []*models.Session{}, nil
	}
	return m.ListActiveSessionsFunc(ctx, userID)
}

func (m *MockSessionService) ForceLogout(ctx context.Context, sessionID, actorID, reason string) error {
	if m.ForceLogoutFunc == nil {
		return models.ErrNotFound
	}
	return m.ForceLogoutFunc(ctx, sessionID, actorID, reason)
}

func (m *MockSessionService) ForceLogoutUser(ctx context.Context, userID, actorID, reason string) (int64, error) {
	if m.ForceLogoutUserFunc == nil {
		return 0, nil
	}
	return m.ForceLogoutUserFunc(ctx, userID, actorID, reason)
}

// MockFirstAccessService implements FirstAccessServiceInterface for testing
type MockFirstAccessService struct {
	SendVerificationCodeFunc func(ctx context.Context, email string) error
	VerifyCodeFunc           func(ctx context.Context, email, code string) (string, time.Time, error)
	ChangePasswordFunc       func(ctx context.Context, req services.ChangePasswordRequest) (*services.LoginResult, error)
}

func (m *MockFirstAccessService) SendVerificationCode(ctx context.Context, email string) error {
	if m.SendVerificationCodeFunc == nil {
		return nil
	}
	return m.SendVerificationCodeFunc(ctx, email)
}

func (m *MockFirstAccessService) VerifyCode(ctx context.Context, email, code string) (string, time.Time, error) {
	if m.VerifyCodeFunc == nil {
		return "", time.Time{}, models.ErrInvalidVerificationCode
	}
	return m.VerifyCodeFunc(ctx, email, code)
}

func (m *MockFirstAccessService) ChangePassword(ctx context.Context, req services.ChangePasswordRequest) (*services.LoginResult, error) {
	if m.ChangePasswordFunc == nil {
		return nil, models.ErrInvalidVerificationToken
	}
	return m.ChangePasswordFunc(ctx, req)
}

// MockIPAccessService implements IPAccessServiceInterface for testing
type MockIPAccessService struct {
	BlockFunc               func(ctx context.Context, ip, reason, actorID string, expiresAt *time.Time) (*models.BlockedIP, error)
	UnblockFunc             func(ctx context.Context, ip, actorID string) error
	ListFunc                func(ctx context.Context) ([]*models.BlockedIP, error)
	WhitelistFunc           func(ctx context.Context, ip, description, actorID string) (*models.WhitelistedIP, error)
	RemoveFromWhitelistFunc func(ctx context.Context, ip, actorID string) error
	ListWhitelistedFunc     func(ctx context.Context) ([]*models.WhitelistedIP, error)
}

func (m *MockIPAccessService) Block(ctx context.Context, ip, reason, actorID string, expiresAt *time.Time) (*models.BlockedIP, error) {
	if m.BlockFunc == nil {
		return &models.BlockedIP{IPAddress: ip, Reason: reason, ExpiresAt: expiresAt, IsActive: true}, nil
	}
	return m.BlockFunc(ctx, ip, reason, actorID, expiresAt)
}

func (m *MockIPAccessService) Unblock(ctx context.Context, ip, actorID string) error {
	if m.UnblockFunc == nil {
		return nil
	}
	return m.UnblockFunc(ctx, ip, actorID)
}

func (m *MockIPAccessService) List(ctx context.Context) ([]*models.BlockedIP, error) {
	if m.ListFunc == nil {
		return []*models.BlockedIP{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *MockIPAccessService) Whitelist(ctx context.Context, ip, description, actorID string) (*models.WhitelistedIP, error) {
	if m.WhitelistFunc == nil {
		return &models.WhitelistedIP{IPAddress: ip, IsActive: true}, nil
	}
	return m.WhitelistFunc(ctx, ip, description, actorID)
}

func (m *MockIPAccessService) RemoveFromWhitelist(ctx context.Context, ip, actorID string) error {
	if m.RemoveFromWhitelistFunc == nil {
		return nil
	}
	return m.RemoveFromWhitelistFunc(ctx, ip, actorID)
}

func (m *MockIPAccessService) ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error) {
	if m.ListWhitelistedFunc == nil {
		return []*models.WhitelistedIP{}, nil
	}
	return m.ListWhitelistedFunc(ctx)
}

// MockAccountBlockService implements AccountBlockServiceInterface for testing
type MockAccountBlockService struct {
	BlockFunc        func(ctx context.Context, email, reason, actorID string) (*models.BlockedUser, error)
	UnblockFunc      func(ctx context.Context, email, actorID string) error
	ListFunc         func(ctx context.Context) ([]*models.BlockedUser, error)
	GetBlockInfoFunc func(ctx context.Context, email string) (*models.BlockedUser, error)
}

func (m *MockAccountBlockService) Block(ctx context.Context, email, reason, actorID string) (*models.BlockedUser, error) {
	if m.BlockFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.BlockFunc(ctx, email, reason, actorID)
}

func (m *MockAccountBlockService) Unblock(ctx context.Context, email, actorID string) error {
	if m.UnblockFunc == nil {
		return models.ErrNotFound
	}
	return m.UnblockFunc(ctx, email, actorID)
}

func (m *MockAccountBlockService) List(ctx context.Context) ([]*models.BlockedUser, error) {
	if m.ListFunc == nil {
		return []*models.BlockedUser{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *MockAccountBlockService) GetBlockInfo(ctx context.Context, email string) (*models.BlockedUser, error) {
	if m.GetBlockInfoFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetBlockInfoFunc(ctx, email)
}

// MockAttemptLister implements LoginAttemptLister for testing
type MockAttemptLister struct {
	Attempts []*models.LoginAttempt
	Err      error
}

func (m *MockAttemptLister) ListRecentAttempts(ctx context.Context) ([]*models.LoginAttempt, error) {
	return m.Attempts, m.Err
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListFunc  func(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error)
	StatsFunc func(ctx context.Context, userID string) (*models.LoginAuditStats, error)
}

func (m *MockAuditService) List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
	if m.ListFunc == nil {
		return []*models.LoginAudit{}, 0, nil
	}
	return m.ListFunc(ctx, filter)
}

func (m *MockAuditService) Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error) {
	if m.StatsFunc == nil {
		return &models.LoginAuditStats{}, nil
	}
	return m.StatsFunc(ctx, userID)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	ListUsersFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	SetInternationalAccessFunc func(ctx context.Context, userID string, allow bool, actorID string) (*models.User, error)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserByIDFunc(ctx, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) SetInternationalAccess(ctx context.Context, userID string, allow bool, actorID string) (*models.User, error) {
	if m.SetInternationalAccessFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetInternationalAccessFunc(ctx, userID, allow, actorID)
}
