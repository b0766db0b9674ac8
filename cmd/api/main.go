package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/background"
	"github.com/gestaoconhecimento/gc-auth/internal/config"
	"github.com/gestaoconhecimento/gc-auth/internal/database"
	"github.com/gestaoconhecimento/gc-auth/internal/geoip"
	"github.com/gestaoconhecimento/gc-auth/internal/handlers"
	middlewareCustom "github.com/gestaoconhecimento/gc-auth/internal/middleware"
	"github.com/gestaoconhecimento/gc-auth/internal/repositories"
	"github.com/gestaoconhecimento/gc-auth/internal/routes"
	"github.com/gestaoconhecimento/gc-auth/internal/services"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	passwordRepo := repositories.NewPasswordRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	blockedUserRepo := repositories.NewBlockedUserRepository(db)
	ipListRepo := repositories.NewIPListRepository(db)
	auditRepo := repositories.NewLoginAuditRepository(db)
	codeRepo := repositories.NewEmailVerificationRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// GeoIP resolver (process-local cache)
	geo := geoip.NewResolver(geoip.Config{
		BaseURL:   cfg.GeoIP.BaseURL,
		Timeout:   cfg.GeoIP.Timeout,
		CacheTTL:  cfg.GeoIP.CacheTTL,
		CacheSize: cfg.GeoIP.CacheSize,
	}, logger)

	// Verification-code delivery: SES when a sender address is configured
	var sender services.EmailSender
	if cfg.Email.FromAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesService, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.SenderName, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		sender = sesService
	} else {
		if cfg.Server.Env == "production" {
			logger.Error("EMAIL_FROM_ADDRESS is required in production")
			os.Exit(1)
		}
		logger.Warn("EMAIL_FROM_ADDRESS not set, verification codes will only be logged")
		sender = services.NewLogEmailService(logger)
	}

	// Initialize services
	auditService := services.NewAuditService(auditRepo, logger)
	rateLimitService := services.NewRateLimitService(attemptRepo, blockedUserRepo, userRepo, logger)
	ipAccessService := services.NewIPAccessService(ipListRepo, logger)
	accountBlockService := services.NewAccountBlockService(blockedUserRepo, userRepo, rateLimitService, logger)
	sessionService := services.NewSessionService(sessionRepo, userRepo, geo, auditService, services.SessionConfig{
		MaxAge:      cfg.Session.MaxAge,
		IdleTimeout: cfg.Session.IdleTimeout,
	}, logger)
	userService := services.NewUserService(userRepo, passwordRepo, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingDelayBase,
		RandomDelay: cfg.Auth.TimingDelayRandom,
	})

	loginService := services.NewLoginService(services.LoginDependencies{
		Users:       userRepo,
		Passwords:   passwordRepo,
		IPAccess:    ipAccessService,
		Accounts:    accountBlockService,
		RateLimiter: rateLimitService,
		Geo:         geo,
		Sessions:    sessionService,
		Auditor:     auditService,
		Timing:      timingDelay,
	}, logger)

	firstAccessService := services.NewFirstAccessService(services.FirstAccessDependencies{
		Users:      userRepo,
		Passwords:  passwordRepo,
		Codes:      codeRepo,
		Resets:     resetRepo,
		Tokens:     auth.NewVerificationTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.VerificationTokenExpiry),
		Sender:     sender,
		Sessions:   sessionService,
		Auditor:    auditService,
		CodeExpiry: cfg.Auth.VerificationCodeExpiry,
	}, logger)

	// Bootstrap first admin user if configured
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		}
		cancel()
	}

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookies := auth.CookieConfig{
		Domain:   cfg.Session.CookieDomain,
		Secure:   cfg.Session.SecureCookie,
		SameSite: "lax",
		MaxAge:   cfg.Session.MaxAge,
	}

	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(loginService, sessionService, ipConfig, cookies, logger),
		FirstAccess:   handlers.NewFirstAccessHandler(firstAccessService, ipConfig, cookies, logger),
		AdminSessions: handlers.NewAdminSessionHandler(sessionService),
		Security:      handlers.NewSecurityHandler(ipAccessService, accountBlockService, rateLimitService),
		Audit:         handlers.NewAuditHandler(auditService),
		Users:         handlers.NewUserHandler(userService),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig, cfg.Server.Env == "production"))
	router.Use(middlewareCustom.Metrics)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.RequireJSON)

	rateLimit := middlewareCustom.DefaultAuthRateLimit(ipConfig)
	rateLimit.RequestsPerMinute = cfg.Auth.LoginRequestsPerMinute
	routes.RegisterRoutes(router, h, sessionService, rateLimit)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})
	router.Handle("/metrics", promhttp.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(sessionService, rateLimitService, codeRepo, resetRepo, background.CleanupConfig{
		Interval:         cfg.Auth.CleanupInterval,
		AttemptRetention: cfg.Auth.LoginAttemptRetention,
	}, logger)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
