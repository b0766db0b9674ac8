package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEvent represents an authentication or access-control event
type SecurityEvent struct {
	EventType string // LOGIN, LOGOUT, FORCED_LOGOUT, PASSWORD_CHANGE, IP_BLOCK, ...
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	Code      string
	SessionID string
	ActorID   string
	Metadata  map[string]string
}

// SecurityLogger writes the structured log side of security events.
// The durable side lives in the login_audit table.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger,
	}
}

// Log emits the event at info level on success and warn level otherwise
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.Code != "" {
		attrs = append(attrs, slog.String("code", event.Code))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	sl.logger.LogAttrs(ctx, level, "security_event", attrs...)
}

// LogAdminAction logs an administrative change to blocklists or sessions
func (sl *SecurityLogger) LogAdminAction(ctx context.Context, eventType, actorID string, metadata map[string]string) {
	sl.Log(ctx, SecurityEvent{
		EventType: eventType,
		ActorID:   actorID,
		Success:   true,
		Metadata:  metadata,
	})
}
