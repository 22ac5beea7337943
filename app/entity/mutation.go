package entity

import "time"

const (
	MutationStatusUnprocessed = "unprocessed"
	MutationStatusMatched     = "matched"
	MutationStatusProcessed   = "processed"
)

// TransactionMutation is a locally cached copy of one bank ledger entry
// reported by the aggregator. Rows are upserted by MutationID and never
// deleted.
type TransactionMutation struct {
	ID uint64

	MutationID string
	BankID     string

	Amount      int64
	Description string
	Type        string

	MutationDate time.Time
	RawPayload   string

	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}
