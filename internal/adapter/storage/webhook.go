package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

// WebhookOutbox keeps webhook jobs in the webhook_jobs table.
type WebhookOutbox struct {
	db *pgxpool.Pool
}

func NewWebhookOutbox(db *pgxpool.Pool) *WebhookOutbox {
	return &WebhookOutbox{db: db}
}

func (o *WebhookOutbox) Enqueue(ctx context.Context, url string, payload []byte) error {
	_, err := o.db.Exec(ctx,
		`INSERT INTO webhook_jobs (id, url, payload) VALUES ($1, $2, $3)`,
		uuid.NewString(), url, payload)
	if err != nil {
		return fmt.Errorf("failed to queue webhook: %w", err)
	}
	return nil
}

// Claim flips the oldest due job to RUNNING. SKIP LOCKED lets several
// workers poll the same table.
func (o *WebhookOutbox) Claim(ctx context.Context, now time.Time) (*domain.WebhookJob, error) {
	query := `
		UPDATE webhook_jobs SET status = 'RUNNING'
		WHERE id = (
			SELECT id FROM webhook_jobs
			WHERE status = 'PENDING' AND next_run_at <= $1
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, url, payload, attempts, next_run_at, created_at
	`
	var job domain.WebhookJob
	err := o.db.QueryRow(ctx, query, now).Scan(&job.ID, &job.URL, &job.Payload, &job.Attempts, &job.NextRunAt, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("claim webhook job", err)
	}
	return &job, nil
}

func (o *WebhookOutbox) Complete(ctx context.Context, id string) error {
	return o.exec(ctx, `UPDATE webhook_jobs SET status = 'COMPLETED' WHERE id = $1`, id)
}

func (o *WebhookOutbox) Fail(ctx context.Context, id string) error {
	return o.exec(ctx, `UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1`, id)
}

func (o *WebhookOutbox) Retry(ctx context.Context, id string, next time.Time) error {
	return o.exec(ctx,
		`UPDATE webhook_jobs SET status = 'PENDING', attempts = attempts + 1, next_run_at = $2 WHERE id = $1`,
		id, next)
}

func (o *WebhookOutbox) exec(ctx context.Context, query string, args ...any) error {
	tag, err := o.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update webhook job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
