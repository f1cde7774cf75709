package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finledger/internal/amqp"
	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/config"
	apphttp "finledger/internal/http"
	"finledger/internal/log"
	"finledger/internal/mail"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func main() {
	// .env is for local development; in containers the vars come from the
	// environment directly.
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

	logger := log.New(log.Config{Level: parseLevel(cfg.LogLevel), Component: log.ComponentApp})
	log.SetDefault(logger)

	logger.Info("starting finledger", "port", cfg.Port, "backend", cfg.DataBackend)

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

	// Without a broker the server falls back to logging outbound mail, which
	// keeps local development working with no RabbitMQ running.
	var mailer mail.Mailer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to broker", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		mailer = mail.NewQueueMailer(amqpClient)
		logger.Info("mail jobs will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		mailer = mail.NewLogMailer(logger)
		logger.Info("no broker configured, mail goes to the log")
	}

	cacheManager := cache.NewManager()
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	reports := services.NewReportService(store, cacheManager, logger)

	svc := apphttp.Services{
		Auth:          auth.NewService(store, mailer, cfg.SessionTTL, logger),
		Users:         services.NewUserService(store, logger),
		Transactions:  services.NewTransactionService(store, reports, logger),
		Budgets:       services.NewBudgetService(store, logger),
		Goals:         services.NewGoalService(store, logger),
		Subscriptions: services.NewSubscriptionService(store, logger),
		Accounts:      services.NewAccountService(store, logger),
		Reports:       reports,
		Billing:       services.NewBillingService(store, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.BillingWebhookSecret, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
