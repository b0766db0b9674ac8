package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireJSON(t *testing.T) {
	handler := RequireJSON(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"json post", "POST", "application/json", `{}`, http.StatusOK},
		{"json with charset", "POST", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"form post", "POST", "application/x-www-form-urlencoded", "email=a", http.StatusUnsupportedMediaType},
		{"text plain", "PUT", "text/plain", "{}", http.StatusUnsupportedMediaType},
		{"missing content type", "DELETE", "", "{}", http.StatusUnsupportedMediaType},
		{"bodyless post", "POST", "", "", http.StatusOK},
		{"get", "GET", "text/plain", "x", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/auth/login", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
