package repository

import (
	"context"
	"database/sql"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			payment_id, event_type, old_status, new_status, mutation_id, payload_json, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		event.PaymentID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.MutationID),
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	).Scan(&event.ID)
}

func (r *PaymentEventRepository) List(ctx context.Context, limit, offset int32) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, payment_id, event_type, old_status, new_status, mutation_id, payload_json, created_at
		FROM payment_events
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		item := &entity.PaymentEvent{}
		var oldStatus, mutationID, payloadJSON sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.PaymentID,
			&item.EventType,
			&oldStatus,
			&item.NewStatus,
			&mutationID,
			&payloadJSON,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.OldStatus = stringPtrFromNull(oldStatus)
		item.MutationID = stringPtrFromNull(mutationID)
		item.PayloadJSON = stringPtrFromNull(payloadJSON)
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
