package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/config"
	"finledger/internal/log"
	"finledger/internal/mail"
	"finledger/internal/worker"
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
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the mailer worker")
		os.Exit(1)
	}
	if cfg.SMTPAddr == "" {
		slog.Error("SMTP_ADDR is required for the mailer worker")
		os.Exit(1)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("starting mailer-worker", "queue", cfg.AMQPQueue, "smtp", cfg.SMTPAddr)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := mail.NewSender(cfg.SMTPAddr, cfg.MailFrom, logger)
	mailWorker := worker.NewMailWorker(sender, logger)

	if err := mailWorker.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mail consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("mailer-worker stopped")
}
