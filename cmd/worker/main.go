package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	booksjobs "github.com/odyssey-erp/odyssey-books/jobs"
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

	if cfg.Storage != app.StoragePostgres || !cfg.CacheEnabled() {
		logger.Error("worker requires postgres storage and REDIS_ADDR")
		os.Exit(1)
	}

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer storage.Close()

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

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, storage, redisClient, metrics, logger)
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	integrityJob := booksjobs.NewLedgerIntegrityJob(services.Ledger, metrics, logger, jobMetrics)
	warmupJob := booksjobs.NewStatementsWarmupJob(services.Statements, logger, jobMetrics)

	integrityTask, err := booksjobs.NewLedgerIntegrityTask("scheduler")
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := booksjobs.NewWorker(booksjobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []booksjobs.TaskHandler{
			{Type: booksjobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: booksjobs.TaskStatementsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []booksjobs.CronRegistration{
			{Spec: "15 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
