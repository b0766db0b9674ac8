package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"joao@empresa.com", "j***@empresa.com"},
		{" Maria@Empresa.com.br ", "m***@empresa.com.br"},
		{"a@x.com", "a***@x.com"},
		{"no-at-sign", "[invalid-email]"},
		{"@empresa.com", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.in))
		})
	}
}

func TestMaskIP(t *testing.T) {
	assert.Equal(t, "177.10.20.0", MaskIP("177.10.20.30"))
	assert.Equal(t, "177.10.20.0", MaskIP("::ffff:177.10.20.30"))
	assert.Equal(t, "2804:14c:65::", MaskIP("2804:14c:65:a1b2::1"))
	assert.Equal(t, "[invalid-ip]", MaskIP("unknown"))
}

func TestClientIPAttr(t *testing.T) {
	assert.Equal(t, "177.10.20.0", ClientIPAttr("client_ip", "177.10.20.30", true).Value.String())
	assert.Equal(t, "177.10.20.30", ClientIPAttr("client_ip", "177.10.20.30", false).Value.String())
	assert.Equal(t, "", ClientIPAttr("client_ip", "", true).Value.String())
}

func TestSensitiveQuery(t *testing.T) {
	assert.True(t, SensitiveQuery("email=a@x.com"))
	assert.True(t, SensitiveQuery("verificationToken=abc"))
	assert.True(t, SensitiveQuery("code=123456"))
	assert.True(t, SensitiveQuery("reset_token=abc"))
	assert.True(t, SensitiveQuery("%zz"))
	assert.False(t, SensitiveQuery("limit=100&offset=0"))
	assert.False(t, SensitiveQuery("userId=user-1&success=false"))
	assert.False(t, SensitiveQuery(""))
}

func TestSecurityLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	sl.Log(context.Background(), SecurityEvent{
		EventType: "LOGIN",
		Email:     "maria@empresa.com.br",
		IPAddress: "177.10.20.30",
		Success:   false,
		Code:      "INVALID_CREDENTIALS",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "security_event", entry["msg"])
	assert.Equal(t, "LOGIN", entry["event_type"])
	assert.Equal(t, "INVALID_CREDENTIALS", entry["code"])
	assert.Equal(t, "m***@empresa.com.br", entry["email"])
	assert.NotContains(t, buf.String(), "maria@empresa.com.br")
}

func TestSecurityLogger_LogAdminAction(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	sl.LogAdminAction(context.Background(), "IP_BLOCK", "admin-1", map[string]string{"ip_address": "1.2.3.4"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "admin-1", entry["actor_id"])
	assert.Equal(t, "1.2.3.4", entry["ip_address"])
}
