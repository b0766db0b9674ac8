package auth

import (
	"context"
	"net/http"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the authenticated session in context
	SessionContextKey contextKey = "session"
)

// SessionValidator validates raw session tokens. A nil result means invalid.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) *models.AuthenticatedSession
}

// RequireSession validates the sid cookie and injects the authenticated session into context
func RequireSession(validator SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := GetSessionCookie(r)
			if err != nil || token == "" {
				pkghttp.WriteUnauthorized(w, "Não autenticado")
				return
			}

			authenticated := validator.ValidateSession(r.Context(), token)
			if authenticated == nil {
				pkghttp.WriteUnauthorized(w, "Sessão inválida ou expirada")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, authenticated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the ADMIN role. Must be used after RequireSession,
// which re-validates the caller's session on every request.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated := GetSessionFromContext(r)
		if authenticated == nil {
			pkghttp.WriteUnauthorized(w, "Não autenticado")
			return
		}

		if !authenticated.User.IsAdmin() {
			pkghttp.WriteForbidden(w, "Acesso negado")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the authenticated session from request context
func GetSessionFromContext(r *http.Request) *models.AuthenticatedSession {
	authenticated, ok := r.Context().Value(SessionContextKey).(*models.AuthenticatedSession)
	if !ok {
		return nil
	}
	return authenticated
}

// WithSession returns a copy of ctx carrying the authenticated session (used by tests and handlers)
func WithSession(ctx context.Context, authenticated *models.AuthenticatedSession) context.Context {
	return context.WithValue(ctx, SessionContextKey, authenticated)
}
