package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcvu-symposium/ms-go-registration/app/bank"
	"github.com/mcvu-symposium/ms-go-registration/app/entity"
	"github.com/mcvu-symposium/ms-go-registration/app/factory"
	"github.com/mcvu-symposium/ms-go-registration/app/repository"
	"github.com/mcvu-symposium/ms-go-registration/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchSize        = int32(100)
	defaultMaxCheckAttempts = int32(288)
	defaultCheckInterval    = 5 * time.Minute

	// uniqueAmountModulus bounds the per-registration offset added to the
	// final amount so concurrent payers produce distinguishable transfers.
	uniqueAmountModulus = 1000
)

type registrationRepository interface {
	Create(ctx context.Context, registration *entity.Registration) error
	Update(ctx context.Context, registration *entity.Registration) error
	UpdateStatus(ctx context.Context, id uint64, fromStatus, toStatus string, now time.Time) (bool, error)
	FindByID(ctx context.Context, id uint64) (*entity.Registration, error)
	FindByNumber(ctx context.Context, number string) (*entity.Registration, error)
	FindByNumberFold(ctx context.Context, number string) (*entity.Registration, error)
	FindByPaymentID(ctx context.Context, paymentID uint64) (*entity.Registration, error)
	FindByParticipantEmail(ctx context.Context, email string) (*entity.Registration, error)
}

type participantRepository interface {
	Create(ctx context.Context, participant *entity.Participant) error
	ListByRegistration(ctx context.Context, registrationID uint64) ([]*entity.Participant, error)
	FindByQRToken(ctx context.Context, qrToken string) (*entity.Participant, error)
	MarkCheckedIn(ctx context.Context, id uint64, now time.Time) (bool, error)
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindPendingByRegistrationID(ctx context.Context, registrationID uint64) (*entity.Payment, error)
	FindByRegistrationID(ctx context.Context, registrationID uint64) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
	ClaimVerify(ctx context.Context, id uint64, transactionID, verifiedBy *string, now time.Time) (bool, error)
	ForceVerify(ctx context.Context, id uint64, transactionID, verifiedBy, notes *string, now time.Time) error
	RecordCheck(ctx context.Context, id uint64, attempts int32, now time.Time) error
}

type mutationRepository interface {
	Upsert(ctx context.Context, mutation *entity.TransactionMutation) (bool, error)
	FindByMutationID(ctx context.Context, mutationID string) (*entity.TransactionMutation, error)
	UpdateStatus(ctx context.Context, mutationID, status string) error
	List(ctx context.Context, filter repository.MutationFilter) ([]*entity.TransactionMutation, error)
}

type taskRepository interface {
	Create(ctx context.Context, task *entity.ScheduledTask) error
	ClaimDue(ctx context.Context, taskType string, now time.Time, limit int32) ([]*entity.ScheduledTask, error)
	Finish(ctx context.Context, id uint64, status string, result *string, now time.Time) error
	HasOpenTask(ctx context.Context, taskType string, registrationID uint64) (bool, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
	List(ctx context.Context, limit, offset int32) ([]*entity.PaymentEvent, error)
}

type webhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
}

// Notifier dispatches the payment-confirmation email. Failures never unwind
// an already-committed payment status; callers log and move on.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, registration *entity.Registration, participants []*entity.Participant, payment *entity.Payment) error
}

type createRegistrationRequest interface {
	GetTicketType() string
	GetTotalAmount() int64
	GetDiscountAmount() int64
	GetParticipants() []ParticipantInput
}

type ParticipantInput struct {
	FullName string
	Email    string
	Phone    string
}

type RegistrationService struct {
	registrationRepo registrationRepository
	participantRepo  participantRepository
	paymentRepo      paymentRepository
	mutationRepo     mutationRepository
	taskRepo         taskRepository
	eventRepo        paymentEventRepository
	webhookRepo      webhookEventRepository
	bankReg          *bank.Registry
	notifier         Notifier
	paymentsCfg      config.PaymentsConfig
	mootaCfg         config.MootaConfig
	logger           logrus.FieldLogger
}

func NewRegistrationService(
	registrationRepo registrationRepository,
	participantRepo participantRepository,
	paymentRepo paymentRepository,
	mutationRepo mutationRepository,
	taskRepo taskRepository,
	eventRepo paymentEventRepository,
	webhookRepo webhookEventRepository,
	bankReg *bank.Registry,
	notifier Notifier,
	paymentsCfg config.PaymentsConfig,
	mootaCfg config.MootaConfig,
) *RegistrationService {
	return &RegistrationService{
		registrationRepo: registrationRepo,
		participantRepo:  participantRepo,
		paymentRepo:      paymentRepo,
		mutationRepo:     mutationRepo,
		taskRepo:         taskRepo,
		eventRepo:        eventRepo,
		webhookRepo:      webhookRepo,
		bankReg:          bankReg,
		notifier:         notifier,
		paymentsCfg:      paymentsCfg,
		mootaCfg:         mootaCfg,
		logger:           factory.NewModuleLogger("registration-service"),
	}
}

func (s *RegistrationService) CreateRegistration(ctx context.Context, req createRegistrationRequest) (*entity.Registration, error) {
	participants := req.GetParticipants()
	if len(participants) == 0 {
		return nil, ErrInvalidRequest
	}

	now := time.Now().UTC()
	registration := &entity.Registration{
		RegistrationNumber: entity.RegistrationNumberPrefix + "PENDING-" + uuid.NewString(),
		TicketType:         strings.TrimSpace(req.GetTicketType()),
		TotalAmount:        req.GetTotalAmount(),
		DiscountAmount:     req.GetDiscountAmount(),
		Status:             entity.RegistrationStatusAwaitingPayment,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	registration.FinalAmount = registration.TotalAmount - registration.DiscountAmount

	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		return nil, err
	}

	// The human-facing number and the unique-amount offset both derive from
	// the row id, so they are only known after the insert.
	registration.RegistrationNumber = fmt.Sprintf("%s%08d", entity.RegistrationNumberPrefix, registration.ID)
	registration.FinalAmount += int64(registration.ID % uniqueAmountModulus)
	registration.UpdatedAt = now
	if err := s.registrationRepo.Update(ctx, registration); err != nil {
		return nil, err
	}

	for _, input := range participants {
		participant := &entity.Participant{
			RegistrationID: registration.ID,
			FullName:       strings.TrimSpace(input.FullName),
			Email:          strings.TrimSpace(input.Email),
			Phone:          strings.TrimSpace(input.Phone),
			QRToken:        uuid.NewString(),
			CreatedAt:      now,
		}
		if err := s.participantRepo.Create(ctx, participant); err != nil {
			return nil, err
		}
	}

	payment := &entity.Payment{
		RegistrationID: registration.ID,
		Amount:         registration.FinalAmount,
		Status:         entity.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: "payment_created",
		NewStatus: payment.Status,
		CreatedAt: now,
	})

	if err := s.scheduleNextCheck(ctx, registration.ID, now.Add(s.checkInterval()), now); err != nil {
		s.logger.WithError(err).WithField("registration_id", registration.ID).Error("Failed to schedule initial payment check")
	}

	return registration, nil
}

func (s *RegistrationService) GetRegistration(ctx context.Context, id uint64) (*entity.Registration, []*entity.Participant, error) {
	registration, err := s.registrationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if registration == nil {
		return nil, nil, ErrRegistrationNotFound
	}

	participants, err := s.participantRepo.ListByRegistration(ctx, registration.ID)
	if err != nil {
		return nil, nil, err
	}

	return registration, participants, nil
}

// CheckIn marks the participant behind a scanned QR token as present.
// The registration moves paid -> checked_in on the first scan and to
// entried once every participant has been scanned.
func (s *RegistrationService) CheckIn(ctx context.Context, qrToken string) (*entity.Participant, *entity.Registration, error) {
	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return nil, nil, ErrInvalidRequest
	}

	participant, err := s.participantRepo.FindByQRToken(ctx, qrToken)
	if err != nil {
		return nil, nil, err
	}
	if participant == nil {
		return nil, nil, ErrParticipantNotFound
	}

	registration, err := s.registrationRepo.FindByID(ctx, participant.RegistrationID)
	if err != nil {
		return nil, nil, err
	}
	if registration == nil {
		return nil, nil, ErrRegistrationNotFound
	}
	if registration.Status == entity.RegistrationStatusAwaitingPayment {
		return nil, nil, ErrRegistrationNotPaid
	}

	now := time.Now().UTC()
	marked, err := s.participantRepo.MarkCheckedIn(ctx, participant.ID, now)
	if err != nil {
		return nil, nil, err
	}
	if marked {
		participant.CheckedInAt = &now
	}

	if registration.Status == entity.RegistrationStatusPaid {
		if changed, err := s.registrationRepo.UpdateStatus(ctx, registration.ID, entity.RegistrationStatusPaid, entity.RegistrationStatusCheckedIn, now); err == nil && changed {
			registration.Status = entity.RegistrationStatusCheckedIn
		}
	}

	participants, err := s.participantRepo.ListByRegistration(ctx, registration.ID)
	if err != nil {
		return participant, registration, nil
	}
	allIn := true
	for _, item := range participants {
		if item.CheckedInAt == nil {
			allIn = false
			break
		}
	}
	if allIn && registration.Status == entity.RegistrationStatusCheckedIn {
		if changed, err := s.registrationRepo.UpdateStatus(ctx, registration.ID, entity.RegistrationStatusCheckedIn, entity.RegistrationStatusEntried, now); err == nil && changed {
			registration.Status = entity.RegistrationStatusEntried
		}
	}

	return participant, registration, nil
}

func (s *RegistrationService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultBatchSize
	}
	return s.paymentRepo.List(ctx, filter)
}

func (s *RegistrationService) ListMutations(ctx context.Context, filter repository.MutationFilter) ([]*entity.TransactionMutation, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultBatchSize
	}
	return s.mutationRepo.List(ctx, filter)
}

func (s *RegistrationService) ListPaymentEvents(ctx context.Context, limit, offset int32) ([]*entity.PaymentEvent, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}
	return s.eventRepo.List(ctx, limit, offset)
}

func (s *RegistrationService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *RegistrationService) maxCheckAttempts() int32 {
	if s.paymentsCfg.MaxCheckAttempts > 0 {
		return s.paymentsCfg.MaxCheckAttempts
	}
	return defaultMaxCheckAttempts
}

func (s *RegistrationService) checkInterval() time.Duration {
	if s.paymentsCfg.CheckInterval > 0 {
		return s.paymentsCfg.CheckInterval
	}
	return defaultCheckInterval
}

func (s *RegistrationService) amountTolerance() int64 {
	if s.paymentsCfg.AmountTolerance > 0 {
		return s.paymentsCfg.AmountTolerance
	}
	return DefaultAmountTolerance
}
