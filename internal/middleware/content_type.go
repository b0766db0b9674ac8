package middleware

import (
	"mime"
	"net/http"

	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// RequireJSON rejects state-changing requests whose body is not JSON. A
// cross-site HTML form cannot send application/json without a CORS
// preflight, which keeps the cookie-authenticated endpoints out of reach of
// form-based request forgery.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isStateChangingMethod(r.Method) || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			pkghttp.WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type deve ser application/json")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
