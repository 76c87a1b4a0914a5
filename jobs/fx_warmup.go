package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/modulus-erp/modulus-erp/internal/fx"
)

// ErrEmptyRateTable makes Asynq retry a warmup that found no rates.
var ErrEmptyRateTable = errors.New("fx warmup: empty rate table")

// NewFXWarmupHandler processes TaskTypeFXWarmup tasks: it resolves today's
// rate table through the cached resolver so the first interactive request
// of the day never waits on the remote feed.
func NewFXWarmupHandler(resolver fx.Resolver, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		today := time.Now()
		table := resolver.RatesForDate(ctx, today)
		if len(table) == 0 {
			// Fail-open resolver: empty means the feed was unreachable (or a
			// holiday). Returning an error lets Asynq retry later rather than
			// caching nothing.
			logger.Warn("fx warmup returned empty table")
			return ErrEmptyRateTable
		}
		logger.Info("fx cache warmed", slog.Int("currencies", len(table)))
		return nil
	}
}
