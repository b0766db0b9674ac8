package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/handlers"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/services"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

func newFirstAccessHandler(service handlers.FirstAccessServiceInterface) *handlers.FirstAccessHandler {
	return handlers.NewFirstAccessHandler(service, nil, testCookies, handlers.NewTestLogger())
}

func TestSendVerificationCode_GenericResponse(t *testing.T) {
	var got string
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
		SendVerificationCodeFunc: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	})

	w := httptest.NewRecorder()
	handler.SendVerificationCode(w, handlers.NewTestRequest(t, "POST", "/auth/send-verification-code",
		handlers.SendVerificationCodeRequest{Email: "maria@empresa.com.br"}))

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.NotEmpty(t, resp["message"])
	assert.Equal(t, "maria@empresa.com.br", got)
}

func TestFirstAccess_TrimsPaddedEmail(t *testing.T) {
	var sentTo, verifiedFor, verifiedCode string
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
		SendVerificationCodeFunc: func(ctx context.Context, email string) error {
			sentTo = email
			return nil
		},
		VerifyCodeFunc: func(ctx context.Context, email, code string) (string, time.Time, error) {
			verifiedFor, verifiedCode = email, code
			return "signed-token", time.Now().Add(15 * time.Minute), nil
		},
	})

	w := httptest.NewRecorder()
	handler.SendVerificationCode(w, handlers.NewTestRequest(t, "POST", "/auth/send-verification-code",
		handlers.SendVerificationCodeRequest{Email: "  maria@empresa.com.br\t"}))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "maria@empresa.com.br", sentTo)

	w = httptest.NewRecorder()
	handler.VerifyCode(w, handlers.NewTestRequest(t, "POST", "/auth/verify-code",
		handlers.VerifyCodeRequest{Email: " maria@empresa.com.br ", Code: " 123456 "}))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "maria@empresa.com.br", verifiedFor)
	assert.Equal(t, "123456", verifiedCode)
}

func TestSendVerificationCode_InvalidEmail(t *testing.T) {
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{})

	w := httptest.NewRecorder()
	handler.SendVerificationCode(w, handlers.NewTestRequest(t, "POST", "/auth/send-verification-code",
		handlers.SendVerificationCodeRequest{Email: "not-an-email"}))

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestSendVerificationCode_SenderFailure(t *testing.T) {
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
		SendVerificationCodeFunc: func(ctx context.Context, email string) error {
			return errors.New("ses throttled")
		},
	})

	w := httptest.NewRecorder()
	handler.SendVerificationCode(w, handlers.NewTestRequest(t, "POST", "/auth/send-verification-code",
		handlers.SendVerificationCodeRequest{Email: "maria@empresa.com.br"}))

	resp := handlers.AssertErrorResponse(t, w, 500, "internal_error")
	assert.Equal(t, "Erro ao enviar email. Tente novamente.", resp.Message)
}

func TestVerifyCode(t *testing.T) {
	expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
		VerifyCodeFunc: func(ctx context.Context, email, code string) (string, time.Time, error) {
			if code != "123456" {
				return "", time.Time{}, models.ErrInvalidVerificationCode
			}
			return "signed-token", expires, nil
		},
	})

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.VerifyCode(w, handlers.NewTestRequest(t, "POST", "/auth/verify-code",
			handlers.VerifyCodeRequest{Email: "maria@empresa.com.br", Code: "123456"}))

		var resp handlers.VerifyCodeResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.Equal(t, "signed-token", resp.VerificationToken)
		assert.True(t, expires.Equal(resp.ExpiresAt))
	})

	t.Run("wrong code", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.VerifyCode(w, handlers.NewTestRequest(t, "POST", "/auth/verify-code",
			handlers.VerifyCodeRequest{Email: "maria@empresa.com.br", Code: "654321"}))

		resp := handlers.AssertErrorResponse(t, w, 401, "unauthorized")
		assert.Equal(t, "INVALID_CODE", resp.Code)
	})

	t.Run("malformed code", func(t *testing.T) {
		for _, code := range []string{"12345", "1234567", "12a456"} {
			w := httptest.NewRecorder()
			handler.VerifyCode(w, handlers.NewTestRequest(t, "POST", "/auth/verify-code",
				handlers.VerifyCodeRequest{Email: "maria@empresa.com.br", Code: code}))
			handlers.AssertErrorResponse(t, w, 400, "bad_request")
		}
	})
}

func TestChangePassword_SuccessSetsCookie(t *testing.T) {
	var got services.ChangePasswordRequest
	handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
		ChangePasswordFunc: func(ctx context.Context, req services.ChangePasswordRequest) (*services.LoginResult, error) {
			got = req
			return &services.LoginResult{Code: models.CodeSuccess, User: testUser(), Token: "new-session"}, nil
		},
	})

	req := handlers.NewTestRequest(t, "POST", "/auth/change-password", handlers.ChangePasswordRequest{
		Email:             " maria@empresa.com.br",
		VerificationToken: "signed-token",
		NewPassword:       "NovaSenha#2025x",
	})
	req.RemoteAddr = "200.160.2.3:443"
	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	var resp handlers.ChangePasswordResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "Senha alterada com sucesso", resp.Message)
	assert.Equal(t, "maria@empresa.com.br", got.Email)
	assert.Equal(t, "200.160.2.3", got.IPAddress)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "new-session", cookie.Value)
}

func TestChangePassword_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{"weak password", &pkgauth.PasswordValidationError{Errors: []string{"too short"}}, 400, "bad_request", "WEAK_PASSWORD"},
		{"invalid token", models.ErrInvalidVerificationToken, 401, "unauthorized", "INVALID_TOKEN"},
		{"not first login", models.ErrNotFirstLogin, 400, "bad_request", "NOT_FIRST_LOGIN"},
		{"inactive user", models.ErrForbidden, 403, "forbidden", ""},
		{"unexpected", errors.New("boom"), 500, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newFirstAccessHandler(&handlers.MockFirstAccessService{
				ChangePasswordFunc: func(ctx context.Context, req services.ChangePasswordRequest) (*services.LoginResult, error) {
					return nil, tt.err
				},
			})

			w := httptest.NewRecorder()
			handler.ChangePassword(w, handlers.NewTestRequest(t, "POST", "/auth/change-password", handlers.ChangePasswordRequest{
				Email:             "maria@empresa.com.br",
				VerificationToken: "signed-token",
				NewPassword:       "fraca",
			}))

			resp := handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantError)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Nil(t, sessionCookie(w))
		})
	}
}
