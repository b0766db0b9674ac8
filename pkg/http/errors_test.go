package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Mensagem de teste")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Mensagem de teste", resp.Message)
	assert.Nil(t, resp.Details)
	assert.Empty(t, resp.Code)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "bad_request", "Senha fraca", []string{"A senha deve conter pelo menos um número"})

	assert.Equal(t, 400, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp["error"])
	assert.Equal(t, []interface{}{"A senha deve conter pelo menos um número"}, resp["details"])
}

func TestWriteErrorResponse_LoginFields(t *testing.T) {
	w := httptest.NewRecorder()
	attemptsLeft := 0
	minutes := 12
	until := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)

	pkghttp.WriteErrorResponse(w, http.StatusTooManyRequests, pkghttp.ErrorResponse{
		Error:            "rate_limit_exceeded",
		Message:          "Muitas tentativas de login. Tente novamente em 12 minutos",
		Code:             "RATE_LIMIT",
		AttemptsLeft:     &attemptsLeft,
		CooldownUntil:    &until,
		MinutesRemaining: &minutes,
	})

	assert.Equal(t, 429, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMIT", resp["code"])
	assert.Equal(t, float64(0), resp["attemptsLeft"])
	assert.Equal(t, "2026-03-01T12:15:00Z", resp["cooldownUntil"])
	assert.Equal(t, float64(12), resp["minutesRemaining"])
	assert.NotContains(t, resp, "country")
}

func TestCommonWriters(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter, string)
		status   int
		category string
	}{
		{name: "bad request", write: pkghttp.WriteBadRequest, status: 400, category: "bad_request"},
		{name: "unauthorized", write: pkghttp.WriteUnauthorized, status: 401, category: "unauthorized"},
		{name: "forbidden", write: pkghttp.WriteForbidden, status: 403, category: "forbidden"},
		{name: "not found", write: pkghttp.WriteNotFound, status: 404, category: "not_found"},
		{name: "conflict", write: pkghttp.WriteConflict, status: 409, category: "conflict"},
		{name: "too many requests", write: pkghttp.WriteTooManyRequests, status: 429, category: "rate_limit_exceeded"},
		{name: "internal", write: pkghttp.WriteInternalError, status: 500, category: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "mensagem")

			assert.Equal(t, tt.status, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.category, resp.Error)
			assert.Equal(t, "mensagem", resp.Message)
			assert.Equal(t, tt.category, pkghttp.ErrorCategory(tt.status))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, 201, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
