package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/modulus-erp/modulus-erp/internal/app"
	"github.com/modulus-erp/modulus-erp/internal/auth"
	"github.com/modulus-erp/modulus-erp/internal/fx"
	"github.com/modulus-erp/modulus-erp/internal/platform/cache"
	"github.com/modulus-erp/modulus-erp/internal/platform/db"
	"github.com/modulus-erp/modulus-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool))

	fxClient := fx.NewClient(cfg.TCMBBaseURL, nil, logger)
	fxResolver := fx.NewCachedResolver(fxClient, redisClient, cfg.FXCacheTTL, logger)

	mailer := jobs.NewSMTPMailer(
		fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer, logger)},
			{Type: jobs.TaskTypeFXWarmup, Handler: jobs.NewFXWarmupHandler(fxResolver, logger)},
			{Type: jobs.TaskTypeSessionsCleanup, Handler: jobs.NewSessionsCleanupHandler(authService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 6 * * *", Task: jobs.NewFXWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: jobs.NewSessionsCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
