package types

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Registration struct {
	ID                 uint64 `json:"id"`
	RegistrationNumber string `json:"registration_number"`
	TicketType         string `json:"ticket_type"`
	TotalAmount        int64  `json:"total_amount"`
	DiscountAmount     int64  `json:"discount_amount"`
	FinalAmount        int64  `json:"final_amount"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type Participant struct {
	ID          uint64 `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	QRToken     string `json:"qr_token"`
	CheckedInAt string `json:"checked_in_at,omitempty"`
}

type Payment struct {
	ID             uint64 `json:"id"`
	RegistrationID uint64 `json:"registration_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	CheckAttempts  int32  `json:"check_attempts"`
	LastCheckedAt  string `json:"last_checked_at,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
	VerifiedBy     string `json:"verified_by,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type TransactionMutation struct {
	ID           uint64 `json:"id"`
	MutationID   string `json:"mutation_id"`
	BankID       string `json:"bank_id"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	MutationDate string `json:"mutation_date"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

type PaymentEvent struct {
	ID         uint64 `json:"id"`
	PaymentID  uint64 `json:"payment_id"`
	EventType  string `json:"event_type"`
	OldStatus  string `json:"old_status,omitempty"`
	NewStatus  string `json:"new_status"`
	MutationID string `json:"mutation_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type RegistrationEnvelopeResponse struct {
	Registration *Registration  `json:"registration"`
	Participants []*Participant `json:"participants"`
}

type LookupRegistrationResponse struct {
	Registration *Registration `json:"registration"`
	Strategy     string        `json:"strategy"`
}

type CheckInResponse struct {
	Participant  *Participant  `json:"participant"`
	Registration *Registration `json:"registration"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type ListMutationsResponse struct {
	Mutations []*TransactionMutation `json:"mutations"`
}

type ListPaymentEventsResponse struct {
	Events []*PaymentEvent `json:"events"`
}

type WebhookAckResponse struct {
	Received int `json:"received"`
	Stored   int `json:"stored"`
	Matched  int `json:"matched"`
}
