package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SessionCleaner purges expired session rows. The auth service satisfies
// this.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// NewSessionsCleanupHandler processes TaskTypeSessionsCleanup tasks.
func NewSessionsCleanupHandler(cleaner SessionCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := cleaner.CleanupExpiredSessions(ctx)
		if err != nil {
			logger.Warn("sessions cleanup", slog.Any("error", err))
			return err
		}
		if removed > 0 {
			logger.Info("expired sessions purged", slog.Int64("count", removed))
		}
		return nil
	}
}
