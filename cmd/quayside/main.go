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

	"github.com/quayside-hq/quayside/internal/app"
	"github.com/quayside-hq/quayside/internal/erp"
	"github.com/quayside-hq/quayside/internal/money"
	"github.com/quayside-hq/quayside/internal/observability"
	"github.com/quayside-hq/quayside/internal/platform/cache"
	"github.com/quayside-hq/quayside/internal/procurement"
	"github.com/quayside-hq/quayside/internal/shared"
	"github.com/quayside-hq/quayside/internal/view"
	"github.com/quayside-hq/quayside/jobs"
)

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

	// The console keeps working without Redis; listings just skip the cache.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	formatter, err := money.New(cfg.CurrencyLocale, cfg.CurrencyCode)
	if err != nil {
		logger.Error("init money formatter", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine(formatter)
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	store := erp.NewClient(cfg.ERPBaseURL, cfg.ERPAPIToken, cfg.ERPTimeout)
	if err := store.Ping(ctx); err != nil {
		logger.Warn("remote store ping", slog.Any("error", err))
	}

	procCache := procurement.NewCache(redisClient, cfg.CacheTTL)
	workflow := procurement.NewWorkflow(store, procCache, logger)
	statuses := shared.NewStatusManager(redisClient, "quayside_browser", cfg.StatusTTL, cfg.IsProduction())
	procurementHandler := procurement.NewHandler(logger, workflow, templates, statuses, cfg.OrderListPageSize, cfg.SupplierSearchDelay)

	metrics := observability.NewMetrics()

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		ProcurementHandler: procurementHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
