package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/handlers"
	"github.com/gestaoconhecimento/gc-auth/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth          *handlers.AuthHandler
	FirstAccess   *handlers.FirstAccessHandler
	AdminSessions *handlers.AdminSessionHandler
	Security      *handlers.SecurityHandler
	Audit         *handlers.AuditHandler
	Users         *handlers.UserHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, sessions auth.SessionValidator, rateLimit middleware.RateLimitConfig) {
	throttle := middleware.RateLimitByIP(rateLimit)

	// Public routes - no session required
	router.Group(func(r chi.Router) {
		r.Use(throttle)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/send-verification-code", h.FirstAccess.SendVerificationCode)
		r.Post("/auth/verify-code", h.FirstAccess.VerifyCode)
		r.Post("/auth/change-password", h.FirstAccess.ChangePassword)
	})
	router.Get("/auth/session", h.Auth.Session)
	router.Post("/auth/logout", h.Auth.Logout)

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))

		r.Post("/auth/logout-all", h.Auth.LogoutAll)

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/sessions", h.AdminSessions.ListSessions)
			r.Post("/sessions/revoke", h.AdminSessions.RevokeSession)

			r.Route("/security", func(r chi.Router) {
				r.Get("/blocked-ips", h.Security.ListBlockedIPs)
				r.Post("/blocked-ips", h.Security.BlockIP)
				r.Delete("/blocked-ips/{ip}", h.Security.UnblockIP)

				r.Get("/whitelist", h.Security.ListWhitelist)
				r.Post("/whitelist", h.Security.WhitelistIP)
				r.Delete("/whitelist/{ip}", h.Security.RemoveWhitelist)

				r.Get("/blocked-users", h.Security.ListBlockedUsers)
				r.Post("/blocked-users", h.Security.BlockUser)
				r.Get("/blocked-users/{email}", h.Security.GetBlockedUser)
				r.Delete("/blocked-users/{email}", h.Security.UnblockUser)

				r.Get("/login-attempts", h.Security.ListLoginAttempts)
			})

			r.Get("/audit/login", h.Audit.ListLoginAudit)
			r.Get("/audit/login/stats", h.Audit.LoginAuditStats)

			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/{id}", h.Users.GetUser)
			r.Put("/users/{id}/international-access", h.Users.SetInternationalAccess)
		})
	})
}
