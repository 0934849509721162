// Package worker delivers queued webhooks in the background.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/notifications"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

const (
	DefaultPollInterval = 5 * time.Second
	MaxAttempts         = 5
)

// SendFunc delivers one payload.
type SendFunc func(ctx context.Context, url string, payload []byte, secret string) error

type WebhookWorker struct {
	outbox   ports.Outbox
	send     SendFunc
	secret   string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewWebhookWorker(outbox ports.Outbox, secret string, logger *slog.Logger) *WebhookWorker {
	if secret == "" {
		logger.Warn("WEBHOOK_SECRET is missing, using default insecure key")
		secret = "default_insecure_key"
	}
	return &WebhookWorker{
		outbox:   outbox,
		send:     notifications.SendWebhook,
		secret:   secret,
		interval: DefaultPollInterval,
		logger:   logger.With("component", "webhook_worker"),
		now:      time.Now,
	}
}

// Start polls the outbox until ctx is cancelled. The returned channel is
// closed once the loop has exited.
func (w *WebhookWorker) Start(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.logger.Info("webhook worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			w.Drain(ctx)
			select {
			case <-ctx.Done():
				w.logger.Info("webhook worker stopped")
				return
			case <-ticker.C:
			}
		}
	}()
	return stopped
}

// Drain processes due jobs until none is left.
func (w *WebhookWorker) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error("outbox unavailable", "error", err)
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessNext delivers one due job. It reports false when nothing was due.
func (w *WebhookWorker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.outbox.Claim(ctx, w.now())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.logger.Info("processing job", "job_id", job.ID, "url", job.URL, "attempts", job.Attempts)
	if sendErr := w.send(ctx, job.URL, job.Payload, w.secret); sendErr != nil {
		w.retryOrFail(ctx, job, sendErr)
		return true, nil
	}

	if err := w.outbox.Complete(ctx, job.ID); err != nil {
		w.logger.Error("failed to mark job completed", "job_id", job.ID, "error", err)
	}
	w.logger.Info("webhook sent", "job_id", job.ID)
	return true, nil
}

func (w *WebhookWorker) retryOrFail(ctx context.Context, job *domain.WebhookJob, sendErr error) {
	w.logger.Error("webhook failed", "job_id", job.ID, "error", sendErr, "attempts", job.Attempts)

	if job.Attempts+1 >= MaxAttempts {
		if err := w.outbox.Fail(ctx, job.ID); err != nil {
			w.logger.Error("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		w.logger.Error("job marked as failed, max attempts reached", "job_id", job.ID)
		return
	}

	next := w.now().Add(Backoff(job.Attempts))
	if err := w.outbox.Retry(ctx, job.ID, next); err != nil {
		w.logger.Error("failed to schedule retry", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Info("scheduled retry", "job_id", job.ID, "next_run", next)
}

// Backoff is the wait before retrying a job that has failed attempts times.
func Backoff(attempts int) time.Duration {
	return time.Duration(attempts*10+10) * time.Second
}
