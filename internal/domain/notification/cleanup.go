package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type retentionPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService handles background cleanup tasks for notifications
type CleanupService struct {
	store retentionPurger
	log   *zap.Logger
	now   func() time.Time
}

// NewCleanupService creates cleanup service
func NewCleanupService(store retentionPurger, log *zap.Logger) *CleanupService {
	return &CleanupService{store: store, log: log, now: time.Now}
}

// CleanupConfig holds configuration for cleanup tasks
type CleanupConfig struct {
	Retention              time.Duration // keep notifications this long (default: 30 days)
	CleanupInterval        time.Duration // how often to run cleanup (default: 24h)
	EnableAutomaticCleanup bool
}

// DefaultCleanupConfig returns default cleanup configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Retention:              30 * 24 * time.Hour,
		CleanupInterval:        24 * time.Hour,
		EnableAutomaticCleanup: true,
	}
}

// CleanupOldNotifications removes notifications older than retention.
func (c *CleanupService) CleanupOldNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	start := time.Now()
	cutoff := c.now().UTC().Add(-retention)

	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Error("notification cleanup failed", zap.Error(err))
		return 0, err
	}

	c.log.Info("notification cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
		zap.Duration("took", time.Since(start)))
	return deleted, nil
}

// ScheduleCleanup starts a background goroutine for periodic cleanup.
// Close the returned channel or cancel ctx to stop it.
func (c *CleanupService) ScheduleCleanup(ctx context.Context, config CleanupConfig) chan struct{} {
	if !config.EnableAutomaticCleanup {
		c.log.Info("automatic cleanup is disabled")
		return nil
	}

	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = c.CleanupOldNotifications(ctx, config.Retention)
			case <-stopCh:
				c.log.Info("scheduled cleanup stopped")
				return
			case <-ctx.Done():
				c.log.Info("scheduled cleanup stopped", zap.Error(ctx.Err()))
				return
			}
		}
	}()

	c.log.Info("scheduled cleanup started", zap.Duration("interval", config.CleanupInterval))
	return stopCh
}
