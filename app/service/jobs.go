package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/bank"
	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

type checkCycleResult struct {
	Matched          bool   `json:"matched"`
	ContinueChecking bool   `json:"continue_checking"`
	Attempts         int32  `json:"attempts"`
	Error            string `json:"error,omitempty"`
}

// RunPaymentCheckBatch claims due payment-check tasks and runs one
// fetch-then-match cycle for each. Cycle errors mark the task failed but
// never stop the batch, and a failed cycle is still rescheduled while the
// attempt ceiling allows.
func (s *RegistrationService) RunPaymentCheckBatch(ctx context.Context) error {
	now := time.Now().UTC()
	tasks, err := s.taskRepo.ClaimDue(ctx, entity.TaskTypePaymentCheck, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, task := range tasks {
		if task == nil {
			continue
		}

		result := s.runPaymentCheckCycle(ctx, task.RegistrationID)

		status := entity.TaskStatusCompleted
		if result.Error != "" {
			status = entity.TaskStatusFailed
		}

		resultJSON := encodeCycleResult(result)
		finishedAt := time.Now().UTC()
		if err := s.taskRepo.Finish(ctx, task.ID, status, &resultJSON, finishedAt); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}

		if result.ContinueChecking {
			if err := s.scheduleNextCheck(ctx, task.RegistrationID, finishedAt.Add(s.checkInterval()), finishedAt); err != nil {
				firstErr = keepFirstErr(firstErr, err)
			}
		}
	}

	return firstErr
}

// runPaymentCheckCycle executes one reconciliation sweep for a single
// registration: fetch recent mutations, look for a match, settle on success.
// Fetch failure counts as "no mutations observed this cycle".
func (s *RegistrationService) runPaymentCheckCycle(ctx context.Context, registrationID uint64) checkCycleResult {
	payment, err := s.paymentRepo.FindByRegistrationID(ctx, registrationID)
	if err != nil {
		// Transient lookup failure: keep the check alive, the next cycle
		// re-evaluates the ceiling.
		return checkCycleResult{ContinueChecking: true, Error: err.Error()}
	}
	if payment == nil {
		return checkCycleResult{Error: ErrPaymentNotFound.Error()}
	}
	if payment.Terminal() {
		// Verified or rejected payments are never rescheduled.
		return checkCycleResult{Matched: payment.Status == entity.PaymentStatusVerified, Attempts: payment.CheckAttempts}
	}

	continueChecking := payment.CheckAttempts < s.maxCheckAttempts()

	registration, err := s.registrationRepo.FindByID(ctx, registrationID)
	if err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: payment.CheckAttempts, Error: err.Error()}
	}
	if registration == nil {
		return checkCycleResult{Error: ErrRegistrationNotFound.Error()}
	}

	now := time.Now().UTC()
	attempts := payment.CheckAttempts + 1
	if err := s.paymentRepo.RecordCheck(ctx, payment.ID, attempts, now); err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: payment.CheckAttempts, Error: err.Error()}
	}
	payment.CheckAttempts = attempts

	continueChecking = attempts < s.maxCheckAttempts()

	provider, err := s.bankReg.Get(bank.ProviderNameMoota)
	if err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts, Error: err.Error()}
	}

	window := s.paymentsCfg.FetchWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	mutations, err := provider.ListMutations(ctx, now.Add(-window), now, s.mootaCfg.DefaultBankID)
	if err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts, Error: err.Error()}
	}

	candidate := MatchMutation(mutations, payment.Amount, registration.RegistrationNumber, s.amountTolerance())
	if candidate == nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts}
	}

	record := &entity.TransactionMutation{
		MutationID:   candidate.MutationID,
		BankID:       candidate.BankID,
		Amount:       candidate.Amount,
		Description:  candidate.Description,
		Type:         candidate.Type,
		MutationDate: candidate.Date,
		RawPayload:   candidate.Raw,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	stored, err := s.mutationRepo.Upsert(ctx, record)
	if err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts, Error: err.Error()}
	}
	if !stored {
		// Mutation already consumed by another registration.
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts}
	}

	applied, err := s.applyMatch(ctx, payment, registration, record)
	if err != nil {
		return checkCycleResult{ContinueChecking: continueChecking, Attempts: attempts, Error: err.Error()}
	}

	return checkCycleResult{Matched: applied, ContinueChecking: !applied && continueChecking, Attempts: attempts}
}

func (s *RegistrationService) scheduleNextCheck(ctx context.Context, registrationID uint64, runAt, now time.Time) error {
	open, err := s.taskRepo.HasOpenTask(ctx, entity.TaskTypePaymentCheck, registrationID)
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	return s.taskRepo.Create(ctx, &entity.ScheduledTask{
		TaskType:       entity.TaskTypePaymentCheck,
		RegistrationID: registrationID,
		RunAt:          runAt,
		Status:         entity.TaskStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func encodeCycleResult(result checkCycleResult) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return `{"matched":false}`
	}
	return string(encoded)
}
