package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	GeoIP    GeoIPConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret               string
	VerificationCodeExpiry  time.Duration
	VerificationTokenExpiry time.Duration
	CleanupInterval         time.Duration
	LoginAttemptRetention   time.Duration
	TimingDelayBase         time.Duration
	TimingDelayRandom       time.Duration
	LoginRequestsPerMinute  int
	AdminEmail              string // bootstrap admin, created on startup when both are set
	AdminPassword           string
}

type SessionConfig struct {
	MaxAge       time.Duration
	IdleTimeout  time.Duration
	CookieDomain string
	SecureCookie bool
}

type GeoIPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
	SenderName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gc_auth"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:               jwtSecret,
			VerificationCodeExpiry:  getEnvAsDuration("VERIFICATION_CODE_EXPIRY", 15*time.Minute),
			VerificationTokenExpiry: getEnvAsDuration("VERIFICATION_TOKEN_EXPIRY", 15*time.Minute),
			CleanupInterval:         getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			LoginAttemptRetention:   getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 90*24*time.Hour),
			TimingDelayBase:         time.Duration(getEnvAsInt("TIMING_DELAY_BASE_MS", 100)) * time.Millisecond,
			TimingDelayRandom:       time.Duration(getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50)) * time.Millisecond,
			LoginRequestsPerMinute:  getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 20),
			AdminEmail:              getEnv("ADMIN_EMAIL", ""),
			AdminPassword:           getEnv("ADMIN_PASSWORD", ""),
		},
		Session: SessionConfig{
			MaxAge:       time.Duration(getEnvAsInt("SESSION_MAX_AGE_DAYS", 1)) * 24 * time.Hour,
			IdleTimeout:  time.Duration(getEnvAsInt("SESSION_IDLE_TIMEOUT_MINUTES", 60)) * time.Minute,
			CookieDomain: getEnv("COOKIE_DOMAIN", ""),
			SecureCookie: env == "production",
		},
		GeoIP: GeoIPConfig{
			BaseURL:   getEnv("GEOIP_BASE_URL", "http://ip-api.com/json/"),
			Timeout:   getEnvAsDuration("GEOIP_TIMEOUT", 3*time.Second),
			CacheTTL:  getEnvAsDuration("GEOIP_CACHE_TTL", 24*time.Hour),
			CacheSize: getEnvAsInt("GEOIP_CACHE_SIZE", 10000),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "sa-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			SenderName:  getEnv("EMAIL_SENDER_NAME", "Gestão do Conhecimento"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Session.MaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE_DAYS must be positive")
	}
	if cfg.Session.IdleTimeout <= 0 {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT_MINUTES must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
