package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-id/gatehouse/internal/auth"
)

// NewBlacklistSweepHandler prunes blacklist entries whose tokens have
// already expired. Expired tokens fail verification on their own, so a
// late or skipped sweep never lets a revoked token back in.
func NewBlacklistSweepHandler(blacklist auth.Blacklist, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := blacklist.Sweep(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("blacklist sweep failed", slog.Any("error", err))
			return err
		}
		logger.Info("blacklist sweep complete", slog.Int64("removed", removed))
		return nil
	}
}
