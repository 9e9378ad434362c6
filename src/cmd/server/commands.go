package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/repository/implementations"
	"github.com/api-sage/ledger-transfer-engine/src/internal/config"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Concurrent fund-transfer execution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var storageOverride string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, worker pool and pending recoverer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			switch storageOverride {
			case "":
			case config.StorageBackendPostgres, config.StorageBackendMemory:
				cfg.StorageBackend = storageOverride
			default:
				return fmt.Errorf("unknown storage backend %q", storageOverride)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			return app.run(ctx)
		},
	}

	cmd.Flags().StringVar(&storageOverride, "storage", "", "override STORAGE_BACKEND (postgres or memory)")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := implementations.Open(ctx, cfg.DatabaseDSN, cfg.WorkerCount)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := implementations.RunMigrations(ctx, db, cfg.MigrationsDir)
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			logger.Info("migrations completed", logger.Fields{
				"applied": applied,
				"dir":     cfg.MigrationsDir,
			})
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall migration timeout")
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
