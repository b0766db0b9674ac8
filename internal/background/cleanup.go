package background

import (
	"context"
	"log/slog"
	"time"
)

// verificationRetention is how long used or expired codes and reset tokens are kept
const verificationRetention = 30 * 24 * time.Hour

// SessionSweeper deactivates expired and idle sessions
type SessionSweeper interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// AttemptPruner deletes login attempts older than the retention window
type AttemptPruner interface {
	CleanupOldAttempts(ctx context.Context, retention time.Duration) (int64, error)
}

// ExpiredRecordCleaner deletes verification records past the cutoff
type ExpiredRecordCleaner interface {
	CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupConfig holds the cleanup schedule
type CleanupConfig struct {
	Interval         time.Duration
	AttemptRetention time.Duration
}

// CleanupManager periodically sweeps sessions, login attempts and
// verification records
type CleanupManager struct {
	sessions SessionSweeper
	attempts AttemptPruner
	codes    ExpiredRecordCleaner
	resets   ExpiredRecordCleaner
	config   CleanupConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	now      func() time.Time
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions SessionSweeper,
	attempts AttemptPruner,
	codes ExpiredRecordCleaner,
	resets ExpiredRecordCleaner,
	config CleanupConfig,
	logger *slog.Logger,
) *CleanupManager {
	return &CleanupManager{
		sessions: sessions,
		attempts: attempts,
		codes:    codes,
		resets:   resets,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs every sweep. A failing sweep is logged and does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := cm.now().Add(-verificationRetention)

	cm.sweep("sessions", func() (int64, error) {
		return cm.sessions.CleanExpiredSessions(cleanupCtx)
	})
	cm.sweep("login_attempts", func() (int64, error) {
		return cm.attempts.CleanupOldAttempts(cleanupCtx, cm.config.AttemptRetention)
	})
	cm.sweep("verification_codes", func() (int64, error) {
		return cm.codes.CleanupExpired(cleanupCtx, cutoff)
	})
	cm.sweep("password_resets", func() (int64, error) {
		return cm.resets.CleanupExpired(cleanupCtx, cutoff)
	})
}

func (cm *CleanupManager) sweep(name string, fn func() (int64, error)) {
	rows, err := fn()
	if err != nil {
		cm.logger.Error("cleanup failed", slog.String("target", name), slog.Any("error", err))
		return
	}
	if rows > 0 {
		cm.logger.Info("cleanup completed", slog.String("target", name), slog.Int64("rows", rows))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
