package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-id/gatehouse/internal/otp"
)

// NewOTPCleanupHandler removes one-time codes past their expiry.
func NewOTPCleanupHandler(service *otp.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := service.CleanupExpired(ctx)
		if err != nil {
			logger.Error("otp cleanup failed", slog.Any("error", err))
			return err
		}
		logger.Info("otp cleanup complete", slog.Int64("removed", removed))
		return nil
	}
}
