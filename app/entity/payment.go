package entity

import "time"

const (
	PaymentStatusPending  = "pending"
	PaymentStatusVerified = "verified"
	PaymentStatusRejected = "rejected"
)

type Payment struct {
	ID uint64

	RegistrationID uint64

	Amount int64
	Status string

	CheckAttempts int32
	LastCheckedAt *time.Time

	TransactionID *string
	VerifiedBy    *string
	Notes         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the payment can never change status again.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusVerified || p.Status == PaymentStatusRejected
}
