package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeFXWarmup is the task type for pre-warming the currency rate cache.
	TaskTypeFXWarmup = "fx:warmup"
	// TaskTypeSessionsCleanup is the task type for purging expired session rows.
	TaskTypeSessionsCleanup = "auth:sessions:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewFXWarmupTask constructs the rate cache warmup task.
func NewFXWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeFXWarmup, nil)
}

// NewSessionsCleanupTask constructs the expired session purge task.
func NewSessionsCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionsCleanup, nil)
}

// Mailer delivers a single message. The SMTP sender satisfies this.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks. A nil mailer logs
// and drops the message, which keeps local development working without an
// SMTP relay.
func NewSendEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if mailer == nil {
			logger.Info("mail dropped, no mailer configured",
				slog.String("to", payload.To),
				slog.String("subject", payload.Subject))
			return nil
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Warn("send mail", slog.Any("error", err))
			return err
		}
		return nil
	}
}
