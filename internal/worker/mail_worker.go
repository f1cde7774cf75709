// Package worker runs the queue-driven side of the system: draining mail
// jobs published by the API server and delivering them over SMTP.
package worker

import (
	"context"
	"fmt"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/log"
)

const sendTimeout = 15 * time.Second

// JobSender delivers a single rendered mail job.
type JobSender interface {
	Send(ctx context.Context, job *amqp.MailJobMessage) error
}

// MailWorker consumes mail jobs from the broker and hands them to a sender.
// A failed delivery returns an error so the broker requeues the job.
type MailWorker struct {
	sender JobSender
	logger *log.Logger
}

func NewMailWorker(sender JobSender, logger *log.Logger) *MailWorker {
	return &MailWorker{
		sender: sender,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMailJob delivers one job. Each delivery gets its own timeout so a
// stuck SMTP relay cannot wedge the consumer loop.
func (w *MailWorker) HandleMailJob(msg *amqp.MailJobMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := w.sender.Send(ctx, msg); err != nil {
		w.logger.ErrorContext(ctx, "mail delivery failed",
			"kind", msg.Kind,
			"to", msg.To,
			log.FieldError, err)
		return fmt.Errorf("deliver mail job: %w", err)
	}

	w.logger.InfoContext(ctx, "mail job delivered", "kind", msg.Kind, "to", msg.To)
	return nil
}

// Run consumes jobs until the context is cancelled.
func (w *MailWorker) Run(ctx context.Context, client *amqp.Client) error {
	w.logger.InfoContext(ctx, "mail worker started")
	return client.ConsumeMailJobs(ctx, w.HandleMailJob)
}
