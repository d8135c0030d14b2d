package main

import (
	"fmt"
	"time"

	"buildhub/internal/database"
	"buildhub/internal/domain/notification"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var retentionFlag time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete notifications past the retention window and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Connect(cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("db connect failed: %w", err)
		}

		retention := cfg.Notifications.Retention
		if retentionFlag > 0 {
			retention = retentionFlag
		}

		cleaner := notification.NewCleanupService(notification.NewRepository(db), log)
		deleted, err := cleaner.CleanupOldNotifications(cmd.Context(), retention)
		if err != nil {
			return err
		}
		log.Info("cleanup completed", zap.Int64("notifications", deleted))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&retentionFlag, "retention", 0, "override NOTIFICATION_RETENTION")
}
