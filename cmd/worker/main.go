package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quayside-hq/quayside/internal/app"
	"github.com/quayside-hq/quayside/internal/erp"
	jobmetrics "github.com/quayside-hq/quayside/internal/jobs"
	"github.com/quayside-hq/quayside/internal/platform/cache"
	"github.com/quayside-hq/quayside/internal/procurement"
	"github.com/quayside-hq/quayside/jobs"
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

	store := erp.NewClient(cfg.ERPBaseURL, cfg.ERPAPIToken, cfg.ERPTimeout)
	procCache := procurement.NewCache(redisClient, cfg.CacheTTL)
	workflow := procurement.NewWorkflow(store, procCache, logger)

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewOrdersWarmupJob(workflow, logger, metrics)

	warmupTask, err := jobs.NewOrdersWarmupTask(3, cfg.OrderListPageSize)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOrdersWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
