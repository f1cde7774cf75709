// Package mail delivers account emails. The API server never sends mail
// directly: it enqueues jobs through a Mailer and the mailer worker drains
// the queue and talks SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"finledger/internal/amqp"
	"finledger/internal/log"
)

// Mailer enqueues account emails for asynchronous delivery.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// QueueMailer publishes mail jobs to the broker.
type QueueMailer struct {
	client *amqp.Client
}

func NewQueueMailer(client *amqp.Client) *QueueMailer {
	return &QueueMailer{client: client}
}

func (q *QueueMailer) SendVerification(ctx context.Context, to, token string) error {
	return q.client.PublishMailJob(ctx, amqp.NewMailJobMessage(amqp.MailVerify, to, token))
}

func (q *QueueMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return q.client.PublishMailJob(ctx, amqp.NewMailJobMessage(amqp.MailPasswordReset, to, token))
}

// LogMailer writes the would-be email to the log instead of sending it. Used
// when no broker is configured, typically in dev against the memory backend.
type LogMailer struct {
	logger *log.Logger
}

func NewLogMailer(logger *log.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent(log.ComponentMail)}
}

func (l *LogMailer) SendVerification(ctx context.Context, to, token string) error {
	l.logger.InfoContext(ctx, "verification mail (log only)", "to", to, "token", token)
	return nil
}

func (l *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	l.logger.InfoContext(ctx, "password reset mail (log only)", "to", to, "token", token)
	return nil
}

// Sender renders and delivers one mail job over SMTP. It runs inside the
// mailer worker, not the API server.
type Sender struct {
	addr   string
	from   string
	logger *log.Logger
}

func NewSender(addr, from string, logger *log.Logger) *Sender {
	return &Sender{addr: addr, from: from, logger: logger.WithComponent(log.ComponentMail)}
}

// Send renders the message for its kind and submits it to the SMTP relay.
func (s *Sender) Send(ctx context.Context, job *amqp.MailJobMessage) error {
	subject, body, err := render(job)
	if err != nil {
		return err
	}

	msg := buildMessage(s.from, job.To, subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{job.To}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.InfoContext(ctx, "mail sent", "kind", job.Kind, "to", job.To)
	return nil
}

func render(job *amqp.MailJobMessage) (subject, body string, err error) {
	switch job.Kind {
	case amqp.MailVerify:
		return "Verify your account",
			fmt.Sprintf("Welcome! Confirm your email with this token: %s\n", job.Token),
			nil
	case amqp.MailPasswordReset:
		return "Reset your password",
			fmt.Sprintf("A password reset was requested for your account.\nReset token: %s\nIf this wasn't you, ignore this message.\n", job.Token),
			nil
	default:
		return "", "", fmt.Errorf("unknown mail kind %q", job.Kind)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
