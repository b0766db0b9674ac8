package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logRequest(t *testing.T, maskClientIP bool, target string, status int) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := SecureLogger(logger, nil, maskClientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = "177.10.20.30:5100"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSecureLogger_MasksClientIP(t *testing.T) {
	entry := logRequest(t, true, "/auth/session", http.StatusOK)
	assert.Equal(t, "177.10.20.0", entry["client_ip"])
	assert.Equal(t, "INFO", entry["level"])

	entry = logRequest(t, false, "/auth/session", http.StatusOK)
	assert.Equal(t, "177.10.20.30", entry["client_ip"])
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	entry := logRequest(t, false, "/admin/security/blocked-users?email=maria@empresa.com.br", http.StatusOK)
	assert.Equal(t, "/admin/security/blocked-users?[REDACTED]", entry["path"])

	entry = logRequest(t, false, "/admin/audit/login?limit=10", http.StatusOK)
	assert.Equal(t, "/admin/audit/login?limit=10", entry["path"])
}

func TestSecureLogger_ServerErrorsAtErrorLevel(t *testing.T) {
	entry := logRequest(t, false, "/auth/login", http.StatusInternalServerError)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, float64(500), entry["status"])
}
