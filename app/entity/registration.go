package entity

import "time"

const (
	RegistrationStatusAwaitingPayment = "awaiting_payment"
	RegistrationStatusPaid            = "paid"
	RegistrationStatusCheckedIn       = "checked_in"
	RegistrationStatusEntried         = "entried"
)

// RegistrationNumberPrefix prefixes every human-facing registration code.
const RegistrationNumberPrefix = "MCVU-"

type Registration struct {
	ID uint64

	RegistrationNumber string
	TicketType         string

	TotalAmount    int64
	DiscountAmount int64
	FinalAmount    int64

	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Participant struct {
	ID uint64

	RegistrationID uint64

	FullName string
	Email    string
	Phone    string

	QRToken     string
	CheckedInAt *time.Time

	CreatedAt time.Time
}
