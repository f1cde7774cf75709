package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"finledger/internal/config"
	"finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentRecurring})
	log.SetDefault(logger)

	logger.Info("starting recurring-worker", "schedule", cfg.RecurringCron, "backend", cfg.DataBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Backend:      cfg.DataBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
		PostgresURL:  cfg.PostgresURL,
	})
	if err != nil {
		logger.Error("failed to open entity store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	processor := services.NewRecurringProcessor(store, nil, logger)

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := processor.ProcessDue(runCtx, time.Now().UTC()); err != nil {
			logger.Error("recurring pass failed", "error", err)
			return
		}
		logger.Info("recurring pass complete")
	}

	// Catch up anything that came due while the worker was down.
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringCron, run); err != nil {
		logger.Error("invalid cron schedule", "error", err, "schedule", cfg.RecurringCron)
		os.Exit(1)
	}
	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutting down recurring-worker")

	// Let an in-flight pass finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout reached")
	}
	logger.Info("recurring-worker stopped")
}
