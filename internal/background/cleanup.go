package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/echopoint/echopoint/internal/database"
)

// CredentialSweeper defines the repository operation the cleanup task runs.
type CredentialSweeper interface {
	ClearExpiredCredentials(ctx context.Context, q database.Querier) (int64, error)
}

// CleanupManager periodically clears expired OTP codes and reset-token hashes
// from the users table.
type CleanupManager struct {
	pool     database.Querier
	users    CredentialSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(pool database.Querier, users CredentialSweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		pool:     pool,
		users:    users,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsCleared, err := cm.users.ClearExpiredCredentials(cleanupCtx, cm.pool)
	if err != nil {
		cm.logger.Error("failed to clear expired credentials", slog.Any("error", err))
		return
	}

	if rowsCleared > 0 {
		cm.logger.Info("expired credential cleanup completed", slog.Int64("rows_cleared", rowsCleared))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
