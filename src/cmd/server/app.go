package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/controller"
	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/router"
	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/notification"
	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/repository/implementations"
	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/ledger-transfer-engine/src/internal/config"
	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/api-sage/ledger-transfer-engine/src/internal/observability"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/backoff"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/dispatch"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	cfg       config.Config
	db        *sql.DB
	pool      *dispatch.Pool
	recoverer *services.PendingRecoverer
	server    *http.Server
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	a := &app{cfg: cfg}

	var (
		accounts     domain.AccountStore
		transactions domain.TransactionStore
		pinger       controller.Pinger
	)
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		accounts = memory.NewAccountStore()
		transactions = memory.NewTransactionStore()
		logger.Warn("using in-memory storage; data is lost on exit", nil)
	default:
		db, err := implementations.Open(ctx, cfg.DatabaseDSN, cfg.WorkerCount)
		if err != nil {
			return nil, err
		}
		if _, err := implementations.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.db = db
		pinger = db
		accounts = implementations.NewAccountRepository(db)
		transactions = implementations.NewTransactionRepository(db)
	}

	executor := services.NewTransactionExecutor(accounts, transactions, newSink(cfg), services.ExecutorOptions{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     backoff.NewExponential(cfg.BackoffBase, cfg.BackoffMax, true),
		Metrics:     metrics,
	})

	a.pool = dispatch.NewPool(cfg.WorkerCount, cfg.QueueSize)
	scheduler := services.NewScheduler(executor, a.pool, metrics)
	a.recoverer = services.NewPendingRecoverer(transactions, scheduler, cfg.RecoveryInterval, cfg.RecoveryGrace)

	mux := router.New(
		authMiddleware(cfg),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		controller.NewHealthController(pinger),
		controller.NewAccountController(services.NewAccountService(accounts)),
		controller.NewTransferController(services.NewTransferService(accounts, transactions, scheduler, metrics)),
		controller.NewTransactionController(services.NewTransactionService(accounts, transactions, scheduler)),
	)

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

func newSink(cfg config.Config) domain.NotificationSink {
	sinks := notification.Fanout{notification.NewLogSink()}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookRatePerSecond))
	}
	return sinks
}

func authMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	if cfg.ChannelKeyHash != "" {
		return middleware.BasicAuthBcrypt(cfg.ChannelID, cfg.ChannelKeyHash)
	}
	return middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey)
}

// run serves until ctx is cancelled, then shuts down in dependency order:
// stop taking requests, stop recovering, drain workers, close storage.
func (a *app) run(ctx context.Context) error {
	a.recoverer.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logger.Fields{
			"addr":    a.cfg.HTTPAddr,
			"storage": a.cfg.StorageBackend,
			"workers": a.cfg.WorkerCount,
		})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", nil)
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", err, nil)
	}
	a.recoverer.Stop()
	if err := a.pool.Close(shutdownCtx); err != nil {
		logger.Error("dispatch pool close failed", err, nil)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Error("database close failed", err, nil)
		}
	}

	logger.Info("shutdown complete", nil)
	_ = logger.Sync()
	return runErr
}
