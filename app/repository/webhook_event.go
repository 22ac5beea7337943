package repository

import (
	"context"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			provider, signature, payload_json, status, error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		event.Provider,
		event.Signature,
		event.PayloadJSON,
		event.Status,
		nullableStringValue(event.Error),
		event.CreatedAt,
	).Scan(&event.ID)
}
