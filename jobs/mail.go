package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jordan-wright/email"

	jobmetrics "github.com/flaelle/flaelle/internal/jobs"
)

// Mailer delivers an email.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// SMTPConfig addresses the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer constructs SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send builds the MIME message and hands it to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg SendEmailPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := buildEmail(m.cfg.From, msg)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return e.Send(net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)), auth)
}

func buildEmail(from string, msg SendEmailPayload) (*email.Email, error) {
	e := email.NewEmail()
	e.From = from
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}
	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Content), a.Filename, a.ContentType); err != nil {
			return nil, fmt.Errorf("jobs: attach %s: %w", a.Filename, err)
		}
	}
	return e, nil
}

// MailJob processes TaskTypeSendEmail tasks.
type MailJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewMailJob constructs MailJob.
func NewMailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJob{mailer: mailer, logger: logger, metrics: metrics}
}

// Handle decodes the payload and sends the email. Malformed payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeSendEmail)
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("decode email payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := j.mailer.Send(ctx, payload); err != nil {
		j.logger.Warn("send email", slog.Any("to", payload.To), slog.String("subject", payload.Subject), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("email sent", slog.Any("to", payload.To), slog.String("subject", payload.Subject), slog.Int("attachments", len(payload.Attachments)))
	return tracker.End(nil)
}
