package entity

import "time"

const (
	WebhookEventStatusProcessed = "processed"
	WebhookEventStatusRejected  = "rejected"
)

type WebhookEvent struct {
	ID uint64

	Provider    string
	Signature   string
	PayloadJSON string
	Status      string
	Error       *string

	CreatedAt time.Time
}
