package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/modulus-erp/modulus-erp/internal/access"
	"github.com/modulus-erp/modulus-erp/internal/admin"
	"github.com/modulus-erp/modulus-erp/internal/app"
	"github.com/modulus-erp/modulus-erp/internal/auth"
	"github.com/modulus-erp/modulus-erp/internal/fx"
	"github.com/modulus-erp/modulus-erp/internal/mfa"
	"github.com/modulus-erp/modulus-erp/internal/observability"
	"github.com/modulus-erp/modulus-erp/internal/platform/cache"
	"github.com/modulus-erp/modulus-erp/internal/platform/db"
	"github.com/modulus-erp/modulus-erp/internal/shared"
	"github.com/modulus-erp/modulus-erp/internal/validation"
	"github.com/modulus-erp/modulus-erp/jobs"
)

// assuranceNotifier bridges MFA step-ups into coordinator refresh events.
type assuranceNotifier struct {
	coordinator *auth.Coordinator
}

func (n assuranceNotifier) AssuranceChanged(sessionID string) {
	n.coordinator.Notify(auth.Event{Kind: auth.EventRefreshed, SessionID: sessionID})
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "modulus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	tokenIssuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	mfaRepo := mfa.NewRepository(dbpool)
	challengeStore := mfa.NewChallengeStore(redisClient, cfg.ChallengeTTL)
	mfaService := mfa.NewService(mfaRepo, challengeStore, sessionManager, logger).WithRecorder(metrics)

	provider := auth.NewStoreProvider(sessionManager, authService, mfaService)
	coordinator := auth.NewCoordinator(provider, logger)
	mfaService.WithNotifier(assuranceNotifier{coordinator: coordinator})

	routeGuard := &access.Guard{Resolver: authService, Logger: logger, LandingPath: auth.LandingPath}

	authHandler := auth.NewHandler(logger, authService, coordinator, tokenIssuer, sessionManager).WithRecorder(metrics)
	mfaHandler := mfa.NewHandler(logger, mfaService)

	fxClient := fx.NewClient(cfg.TCMBBaseURL, nil, logger).WithRecorder(metrics)
	fxResolver := fx.NewCachedResolver(fxClient, redisClient, cfg.FXCacheTTL, logger)
	fxHandler := fx.NewHandler(logger, fxResolver)

	validationHandler := validation.NewHandler(logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	adminRepo := admin.NewRepository(dbpool)
	adminAuth := admin.NewAuthenticator(tokenIssuer, adminRepo)
	adminHandler := admin.NewHandler(logger, adminRepo, adminAuth, jobClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RouteGuard:        routeGuard,
		AuthHandler:       authHandler,
		MFAHandler:        mfaHandler,
		FXHandler:         fxHandler,
		ValidationHandler: validationHandler,
		AdminHandler:      adminHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
