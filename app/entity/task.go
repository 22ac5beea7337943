package entity

import "time"

const TaskTypePaymentCheck = "payment_check"

const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// ScheduledTask is one deferred unit of work. Tasks are rows polled by
// whichever process next runs the jobs sweep; there is no in-process
// scheduler daemon.
type ScheduledTask struct {
	ID uint64

	TaskType       string
	RegistrationID uint64

	RunAt  time.Time
	Status string
	Result *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
