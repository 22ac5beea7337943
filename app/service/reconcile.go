package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/bank"
	"github.com/mcvu-symposium/ms-go-registration/app/entity"
	"github.com/mcvu-symposium/ms-go-registration/app/repository"
)

type bankWebhookRequest interface {
	GetSecret() string
	GetSignature() string
	GetPayload() []byte
}

type manualVerifyRequest interface {
	GetPaymentID() uint64
	GetRegistrationID() uint64
	GetTransactionID() string
	GetNotes() string
}

// WebhookResult summarizes one reconciliation sweep triggered by a webhook
// delivery.
type WebhookResult struct {
	Received int
	Stored   int
	Matched  int
}

// HandleBankWebhook authenticates a mutation delivery and runs a
// reconciliation sweep over its payload. Both the shared-secret header and
// the HMAC body signature must verify before anything is written.
func (s *RegistrationService) HandleBankWebhook(ctx context.Context, req bankWebhookRequest) (*WebhookResult, error) {
	if !s.verifyWebhookAuth(req.GetSecret(), req.GetSignature(), req.GetPayload()) {
		return nil, ErrWebhookRejected
	}

	now := time.Now().UTC()
	mutations, parseErr := parseWebhookMutations(req.GetPayload())

	event := &entity.WebhookEvent{
		Provider:    bank.ProviderNameMoota,
		Signature:   strings.TrimSpace(req.GetSignature()),
		PayloadJSON: string(req.GetPayload()),
		Status:      entity.WebhookEventStatusProcessed,
		CreatedAt:   now,
	}
	if parseErr != nil {
		errMsg := truncate(parseErr.Error(), 1024)
		event.Status = entity.WebhookEventStatusRejected
		event.Error = &errMsg
	}
	if err := s.webhookRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, ErrInvalidRequest
	}

	result := &WebhookResult{Received: len(mutations)}
	var firstErr error
	for _, mutation := range mutations {
		stored, matched, err := s.RecordMutation(ctx, mutation)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if stored {
			result.Stored++
		}
		if matched {
			result.Matched++
		}
	}

	return result, firstErr
}

func (s *RegistrationService) verifyWebhookAuth(secret, signature string, payload []byte) bool {
	configured := strings.TrimSpace(s.mootaCfg.WebhookSecret)
	if configured == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(secret)), []byte(configured)) != 1 {
		return false
	}
	return verifyHMACSignature(payload, signature, s.mootaCfg.HMACSecret)
}

func verifyHMACSignature(payload []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	secret = strings.TrimSpace(secret)
	if signature == "" || secret == "" {
		return false
	}

	candidate, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(candidate, mac.Sum(nil))
}

// RecordMutation upserts one observed ledger mutation and immediately
// attempts a match-and-apply step against pending payments. A mutation that
// was already matched or processed is an idempotent no-op. A mutation with
// no matching payment stays unprocessed for manual review.
func (s *RegistrationService) RecordMutation(ctx context.Context, mutation bank.Mutation) (stored bool, matched bool, err error) {
	if strings.TrimSpace(mutation.MutationID) == "" {
		return false, false, ErrInvalidRequest
	}

	now := time.Now().UTC()
	record := &entity.TransactionMutation{
		MutationID:   strings.TrimSpace(mutation.MutationID),
		BankID:       mutation.BankID,
		Amount:       mutation.Amount,
		Description:  mutation.Description,
		Type:         mutation.Type,
		MutationDate: mutation.Date,
		RawPayload:   mutation.Raw,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if record.MutationDate.IsZero() {
		record.MutationDate = now
	}

	stored, err = s.mutationRepo.Upsert(ctx, record)
	if err != nil {
		return false, false, err
	}
	if !stored {
		return false, false, nil
	}

	payment, registration, err := s.findPaymentForMutation(ctx, mutation)
	if err != nil {
		return true, false, err
	}
	if payment == nil {
		return true, false, nil
	}

	applied, err := s.applyMatch(ctx, payment, registration, record)
	if err != nil {
		return true, false, err
	}

	return true, applied, nil
}

// findPaymentForMutation walks every pending payment page by page, so a
// backlog larger than one batch still reaches a match on the webhook path.
func (s *RegistrationService) findPaymentForMutation(ctx context.Context, mutation bank.Mutation) (*entity.Payment, *entity.Registration, error) {
	candidates := []bank.Mutation{mutation}
	limit := s.batchSize()

	for offset := int32(0); ; offset += limit {
		pending, err := s.paymentRepo.List(ctx, repository.PaymentFilter{
			Status: entity.PaymentStatusPending,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return nil, nil, err
		}

		for _, payment := range pending {
			registration, err := s.registrationRepo.FindByID(ctx, payment.RegistrationID)
			if err != nil {
				return nil, nil, err
			}
			if registration == nil {
				continue
			}
			if MatchMutation(candidates, payment.Amount, registration.RegistrationNumber, s.amountTolerance()) != nil {
				return payment, registration, nil
			}
		}

		if int32(len(pending)) < limit {
			return nil, nil, nil
		}
	}
}

// applyMatch settles a matched payment. The claim is a conditional update
// on status=pending, so a concurrent sweep observing the same candidate
// loses the race cleanly instead of double-verifying.
func (s *RegistrationService) applyMatch(ctx context.Context, payment *entity.Payment, registration *entity.Registration, mutation *entity.TransactionMutation) (bool, error) {
	now := time.Now().UTC()
	transactionID := mutation.MutationID
	verifiedBy := "system"

	claimed, err := s.paymentRepo.ClaimVerify(ctx, payment.ID, &transactionID, &verifiedBy, now)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	oldStatus := payment.Status
	payment.Status = entity.PaymentStatusVerified
	payment.TransactionID = &transactionID

	if _, err := s.registrationRepo.UpdateStatus(ctx, registration.ID, entity.RegistrationStatusAwaitingPayment, entity.RegistrationStatusPaid, now); err != nil {
		return true, err
	}
	registration.Status = entity.RegistrationStatusPaid

	if err := s.mutationRepo.UpdateStatus(ctx, mutation.MutationID, entity.MutationStatusMatched); err != nil {
		return true, err
	}
	mutation.Status = entity.MutationStatusMatched

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID:  payment.ID,
		EventType:  "payment_verified",
		OldStatus:  &oldStatus,
		NewStatus:  payment.Status,
		MutationID: &mutation.MutationID,
		CreatedAt:  now,
	})

	s.notifyPaymentConfirmed(ctx, registration, payment)

	return true, nil
}

// ManualVerifyPayment force-marks a payment verified, bypassing the matcher.
// Re-verifying an already-paid registration overwrites idempotently and the
// notifier still runs, which can double-send a confirmation email.
func (s *RegistrationService) ManualVerifyPayment(ctx context.Context, req manualVerifyRequest) (*entity.Registration, error) {
	payment, err := s.paymentRepo.FindByID(ctx, req.GetPaymentID())
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.RegistrationID != req.GetRegistrationID() {
		return nil, ErrInvalidRequest
	}

	registration, err := s.registrationRepo.FindByID(ctx, req.GetRegistrationID())
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, ErrRegistrationNotFound
	}

	now := time.Now().UTC()
	verifiedBy := "admin"
	transactionID := normalizeOptionalString(req.GetTransactionID())
	notes := normalizeOptionalString(req.GetNotes())

	oldStatus := payment.Status
	if err := s.paymentRepo.ForceVerify(ctx, payment.ID, transactionID, &verifiedBy, notes, now); err != nil {
		return nil, err
	}
	payment.Status = entity.PaymentStatusVerified

	if changed, err := s.registrationRepo.UpdateStatus(ctx, registration.ID, entity.RegistrationStatusAwaitingPayment, entity.RegistrationStatusPaid, now); err != nil {
		return nil, err
	} else if changed {
		registration.Status = entity.RegistrationStatusPaid
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: "payment_verified_manually",
		OldStatus: &oldStatus,
		NewStatus: payment.Status,
		CreatedAt: now,
	})

	s.notifyPaymentConfirmed(ctx, registration, payment)

	return registration, nil
}

func (s *RegistrationService) notifyPaymentConfirmed(ctx context.Context, registration *entity.Registration, payment *entity.Payment) {
	participants, err := s.participantRepo.ListByRegistration(ctx, registration.ID)
	if err != nil {
		s.logger.WithError(err).WithField("registration_id", registration.ID).Error("Failed to load participants for confirmation email")
		return
	}

	if err := s.notifier.SendPaymentConfirmation(ctx, registration, participants, payment); err != nil {
		s.logger.WithError(err).WithField("registration_id", registration.ID).Error("Failed to send payment confirmation")
	}
}

func parseWebhookMutations(payload []byte) ([]bank.Mutation, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, ErrInvalidRequest
	}

	var raws []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(payload, &raws); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return nil, err
		}
		raws = envelope.Data
	}

	mutations := make([]bank.Mutation, 0, len(raws))
	for _, raw := range raws {
		mutation, err := bank.ParseWebhookMutation(raw)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, mutation)
	}

	return mutations, nil
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
