package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"statuswatch/internal/alert"
	"statuswatch/internal/config"
	"statuswatch/internal/httpapi"
	"statuswatch/internal/logging"
	"statuswatch/internal/notify"
	"statuswatch/internal/probe"
	"statuswatch/internal/repo"
	"statuswatch/internal/repo/memory"
	"statuswatch/internal/repo/postgres"
	"statuswatch/internal/scheduler"
	"statuswatch/internal/status"
	"statuswatch/internal/uptime"
)

// stores bundles every port one adapter implements.
type stores interface {
	repo.TenantStore
	repo.MonitorStore
	repo.ContactStore
	repo.ResultStore
	repo.StatusStore
	repo.AlertHistoryStore
	repo.StatsStore
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store stores
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Bootstrap(ctx); err != nil {
			logger.Fatal("postgres_bootstrap_failed", zap.Error(err))
		}
		store = pg
		logger.Info("store_postgres")
	} else {
		store = memory.New()
		logger.Warn("store_memory", zap.String("hint", "set DATABASE_URL for persistence"))
	}

	evaluator := probe.NewEvaluator(probe.PoolConfig{
		ConnectTimeout:  cfg.ConnectTimeout,
		RequestTimeout:  cfg.RequestTimeout,
		MaxConnections:  cfg.MaxConnections,
		MaxPerHost:      cfg.MaxPerHost,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}, logger)
	defer evaluator.Close()

	tracker := status.NewTracker(store, logger)
	mailer := notify.NewEmail(cfg.SMTP)
	webhooks := notify.NewWebhook(cfg.RequestTimeout)
	dispatcher := alert.NewDispatcher(store, store, store, mailer, webhooks, logger)
	aggregator := uptime.NewAggregator(store, store, store, logger)

	engine := scheduler.NewEngine(
		logger, store, store, store, store,
		evaluator, tracker, dispatcher, cfg.Concurrency,
	)

	go engine.Run(ctx, cfg.CheckInterval)
	go engine.RunRetries(ctx, cfg.RetryInterval, cfg.FailureThreshold)
	go (&scheduler.StatsRunner{
		Logger:     logger,
		Tenants:    store,
		Aggregator: aggregator,
		Interval:   cfg.StatsInterval,
	}).Run(ctx)
	go (&scheduler.CleanupRunner{
		Logger:        logger,
		Tenants:       store,
		Results:       store,
		Stats:         store,
		Interval:      cfg.CleanupInterval,
		RetentionDays: cfg.RetentionDays,
	}).Run(ctx)

	api := httpapi.NewServer(logger, engine, aggregator, dispatcher)
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	go func() {
		<-ctx.Done()
		logger.Info("shutting_down")
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen_failed", zap.Error(err))
	}
}
