package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/bank"
	"github.com/mcvu-symposium/ms-go-registration/app/entity"
	"github.com/mcvu-symposium/ms-go-registration/app/repository"
	"github.com/mcvu-symposium/ms-go-registration/config"
)

type serviceRegistrationRepo struct {
	registrations map[uint64]*entity.Registration
	nextID        uint64
	byPayment     map[uint64]uint64
	byEmail       map[string]uint64
}

func newServiceRegistrationRepo() *serviceRegistrationRepo {
	return &serviceRegistrationRepo{
		registrations: map[uint64]*entity.Registration{},
		nextID:        1,
		byPayment:     map[uint64]uint64{},
		byEmail:       map[string]uint64{},
	}
}

func (r *serviceRegistrationRepo) Create(_ context.Context, registration *entity.Registration) error {
	id := r.nextID
	r.nextID++
	copyItem := *registration
	copyItem.ID = id
	r.registrations[id] = &copyItem
	registration.ID = id
	return nil
}

func (r *serviceRegistrationRepo) Update(_ context.Context, registration *entity.Registration) error {
	if _, ok := r.registrations[registration.ID]; !ok {
		return repository.ErrRegistrationNotFound
	}
	copyItem := *registration
	r.registrations[registration.ID] = &copyItem
	return nil
}

func (r *serviceRegistrationRepo) UpdateStatus(_ context.Context, id uint64, fromStatus, toStatus string, now time.Time) (bool, error) {
	item, ok := r.registrations[id]
	if !ok || item.Status != fromStatus {
		return false, nil
	}
	item.Status = toStatus
	item.UpdatedAt = now
	return true, nil
}

func (r *serviceRegistrationRepo) FindByID(_ context.Context, id uint64) (*entity.Registration, error) {
	item, ok := r.registrations[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceRegistrationRepo) FindByNumber(_ context.Context, number string) (*entity.Registration, error) {
	for _, item := range r.registrations {
		if item.RegistrationNumber == number {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceRegistrationRepo) FindByNumberFold(_ context.Context, number string) (*entity.Registration, error) {
	for _, item := range r.registrations {
		if strings.EqualFold(item.RegistrationNumber, number) {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceRegistrationRepo) FindByPaymentID(_ context.Context, paymentID uint64) (*entity.Registration, error) {
	id, ok := r.byPayment[paymentID]
	if !ok {
		return nil, nil
	}
	return r.FindByID(context.Background(), id)
}

func (r *serviceRegistrationRepo) FindByParticipantEmail(_ context.Context, email string) (*entity.Registration, error) {
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return r.FindByID(context.Background(), id)
}

type serviceParticipantRepo struct {
	participants map[uint64]*entity.Participant
	nextID       uint64
}

func newServiceParticipantRepo() *serviceParticipantRepo {
	return &serviceParticipantRepo{participants: map[uint64]*entity.Participant{}, nextID: 1}
}

func (r *serviceParticipantRepo) Create(_ context.Context, participant *entity.Participant) error {
	id := r.nextID
	r.nextID++
	copyItem := *participant
	copyItem.ID = id
	r.participants[id] = &copyItem
	participant.ID = id
	return nil
}

func (r *serviceParticipantRepo) ListByRegistration(_ context.Context, registrationID uint64) ([]*entity.Participant, error) {
	items := make([]*entity.Participant, 0)
	for _, item := range r.participants {
		if item.RegistrationID == registrationID {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *serviceParticipantRepo) FindByQRToken(_ context.Context, qrToken string) (*entity.Participant, error) {
	for _, item := range r.participants {
		if item.QRToken == qrToken {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceParticipantRepo) MarkCheckedIn(_ context.Context, id uint64, now time.Time) (bool, error) {
	item, ok := r.participants[id]
	if !ok || item.CheckedInAt != nil {
		return false, nil
	}
	checkedIn := now
	item.CheckedInAt = &checkedIn
	return true, nil
}

type servicePaymentRepo struct {
	payments  map[uint64]*entity.Payment
	nextID    uint64
	findErr   error
	recordErr error
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{payments: map[uint64]*entity.Payment{}, nextID: 1}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	id := r.nextID
	r.nextID++
	copyItem := *payment
	copyItem.ID = id
	r.payments[id] = &copyItem
	payment.ID = id
	return nil
}

func (r *servicePaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePaymentRepo) FindPendingByRegistrationID(_ context.Context, registrationID uint64) (*entity.Payment, error) {
	var latest *entity.Payment
	for _, item := range r.payments {
		if item.RegistrationID != registrationID || item.Status != entity.PaymentStatusPending {
			continue
		}
		if latest == nil || item.ID > latest.ID {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyItem := *latest
	return &copyItem, nil
}

func (r *servicePaymentRepo) FindByRegistrationID(_ context.Context, registrationID uint64) (*entity.Payment, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var latest *entity.Payment
	for _, item := range r.payments {
		if item.RegistrationID != registrationID {
			continue
		}
		if latest == nil || item.ID > latest.ID {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyItem := *latest
	return &copyItem, nil
}

func (r *servicePaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if filter.RegistrationID > 0 && item.RegistrationID != filter.RegistrationID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	start := int(filter.Offset)
	if start > len(items) {
		start = len(items)
	}
	items = items[start:]
	if filter.Limit > 0 && int(filter.Limit) < len(items) {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *servicePaymentRepo) ClaimVerify(_ context.Context, id uint64, transactionID, verifiedBy *string, now time.Time) (bool, error) {
	item, ok := r.payments[id]
	if !ok || item.Status != entity.PaymentStatusPending {
		return false, nil
	}
	item.Status = entity.PaymentStatusVerified
	if transactionID != nil {
		item.TransactionID = transactionID
	}
	if verifiedBy != nil {
		item.VerifiedBy = verifiedBy
	}
	item.UpdatedAt = now
	return true, nil
}

func (r *servicePaymentRepo) ForceVerify(_ context.Context, id uint64, transactionID, verifiedBy, notes *string, now time.Time) error {
	item, ok := r.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	item.Status = entity.PaymentStatusVerified
	if transactionID != nil {
		item.TransactionID = transactionID
	}
	if verifiedBy != nil {
		item.VerifiedBy = verifiedBy
	}
	if notes != nil {
		item.Notes = notes
	}
	item.UpdatedAt = now
	return nil
}

func (r *servicePaymentRepo) RecordCheck(_ context.Context, id uint64, attempts int32, now time.Time) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	item, ok := r.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	item.CheckAttempts = attempts
	checkedAt := now
	item.LastCheckedAt = &checkedAt
	return nil
}

type serviceMutationRepo struct {
	mutations map[string]*entity.TransactionMutation
	nextID    uint64
}

func newServiceMutationRepo() *serviceMutationRepo {
	return &serviceMutationRepo{mutations: map[string]*entity.TransactionMutation{}, nextID: 1}
}

func (r *serviceMutationRepo) Upsert(_ context.Context, mutation *entity.TransactionMutation) (bool, error) {
	existing, ok := r.mutations[mutation.MutationID]
	if ok {
		if existing.Status == entity.MutationStatusMatched || existing.Status == entity.MutationStatusProcessed {
			return false, nil
		}
		mutation.ID = existing.ID
	} else {
		mutation.ID = r.nextID
		r.nextID++
	}
	mutation.Status = entity.MutationStatusUnprocessed
	copyItem := *mutation
	r.mutations[mutation.MutationID] = &copyItem
	return true, nil
}

func (r *serviceMutationRepo) FindByMutationID(_ context.Context, mutationID string) (*entity.TransactionMutation, error) {
	item, ok := r.mutations[mutationID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceMutationRepo) UpdateStatus(_ context.Context, mutationID, status string) error {
	item, ok := r.mutations[mutationID]
	if !ok {
		return repository.ErrMutationNotFound
	}
	item.Status = status
	return nil
}

func (r *serviceMutationRepo) List(_ context.Context, filter repository.MutationFilter) ([]*entity.TransactionMutation, error) {
	items := make([]*entity.TransactionMutation, 0)
	for _, item := range r.mutations {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.BankID != "" && item.BankID != filter.BankID {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

type serviceTaskRepo struct {
	tasks  map[uint64]*entity.ScheduledTask
	nextID uint64
}

func newServiceTaskRepo() *serviceTaskRepo {
	return &serviceTaskRepo{tasks: map[uint64]*entity.ScheduledTask{}, nextID: 1}
}

func (r *serviceTaskRepo) Create(_ context.Context, task *entity.ScheduledTask) error {
	id := r.nextID
	r.nextID++
	copyItem := *task
	copyItem.ID = id
	r.tasks[id] = &copyItem
	task.ID = id
	return nil
}

func (r *serviceTaskRepo) ClaimDue(_ context.Context, taskType string, now time.Time, limit int32) ([]*entity.ScheduledTask, error) {
	items := make([]*entity.ScheduledTask, 0)
	for _, item := range r.tasks {
		if item.TaskType != taskType || item.Status != entity.TaskStatusPending || item.RunAt.After(now) {
			continue
		}
		item.Status = entity.TaskStatusProcessing
		copyItem := *item
		items = append(items, &copyItem)
		if limit > 0 && int32(len(items)) >= limit {
			break
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *serviceTaskRepo) Finish(_ context.Context, id uint64, status string, result *string, now time.Time) error {
	item, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	item.Status = status
	item.Result = result
	item.UpdatedAt = now
	return nil
}

func (r *serviceTaskRepo) HasOpenTask(_ context.Context, taskType string, registrationID uint64) (bool, error) {
	for _, item := range r.tasks {
		if item.TaskType == taskType && item.RegistrationID == registrationID &&
			(item.Status == entity.TaskStatusPending || item.Status == entity.TaskStatusProcessing) {
			return true, nil
		}
	}
	return false, nil
}

type serviceEventRepo struct {
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	copyItem := *event
	copyItem.ID = uint64(len(r.events) + 1)
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) List(_ context.Context, limit, offset int32) ([]*entity.PaymentEvent, error) {
	start := int(offset)
	if start > len(r.events) {
		return []*entity.PaymentEvent{}, nil
	}
	end := start + int(limit)
	if limit <= 0 || end > len(r.events) {
		end = len(r.events)
	}
	return r.events[start:end], nil
}

type serviceWebhookRepo struct {
	events []*entity.WebhookEvent
}

func (r *serviceWebhookRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	copyItem := *event
	copyItem.ID = uint64(len(r.events) + 1)
	r.events = append(r.events, &copyItem)
	return nil
}

type serviceNotifier struct {
	sent int
	err  error
}

func (n *serviceNotifier) SendPaymentConfirmation(context.Context, *entity.Registration, []*entity.Participant, *entity.Payment) error {
	n.sent++
	return n.err
}

type serviceBankProvider struct {
	mutations []bank.Mutation
	err       error
	calls     int
}

func (p *serviceBankProvider) Name() string { return bank.ProviderNameMoota }

func (p *serviceBankProvider) ListMutations(context.Context, time.Time, time.Time, string) ([]bank.Mutation, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.mutations, nil
}

type serviceFixture struct {
	registrationRepo *serviceRegistrationRepo
	participantRepo  *serviceParticipantRepo
	paymentRepo      *servicePaymentRepo
	mutationRepo     *serviceMutationRepo
	taskRepo         *serviceTaskRepo
	eventRepo        *serviceEventRepo
	webhookRepo      *serviceWebhookRepo
	notifier         *serviceNotifier
	provider         *serviceBankProvider
	svc              *RegistrationService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		registrationRepo: newServiceRegistrationRepo(),
		participantRepo:  newServiceParticipantRepo(),
		paymentRepo:      newServicePaymentRepo(),
		mutationRepo:     newServiceMutationRepo(),
		taskRepo:         newServiceTaskRepo(),
		eventRepo:        &serviceEventRepo{},
		webhookRepo:      &serviceWebhookRepo{},
		notifier:         &serviceNotifier{},
		provider:         &serviceBankProvider{},
	}
	f.svc = NewRegistrationService(
		f.registrationRepo,
		f.participantRepo,
		f.paymentRepo,
		f.mutationRepo,
		f.taskRepo,
		f.eventRepo,
		f.webhookRepo,
		bank.NewRegistry(f.provider),
		f.notifier,
		config.PaymentsConfig{
			AmountTolerance:  10000,
			MaxCheckAttempts: 288,
			CheckInterval:    5 * time.Minute,
			FetchWindow:      24 * time.Hour,
			JobBatchSize:     100,
		},
		config.MootaConfig{
			WebhookSecret: "webhook-secret",
			HMACSecret:    "hmac-secret",
			DefaultBankID: "bank-1",
		},
	)
	return f
}

type createRegistrationInput struct {
	ticketType     string
	totalAmount    int64
	discountAmount int64
	participants   []ParticipantInput
}

func (r createRegistrationInput) GetTicketType() string               { return r.ticketType }
func (r createRegistrationInput) GetTotalAmount() int64               { return r.totalAmount }
func (r createRegistrationInput) GetDiscountAmount() int64            { return r.discountAmount }
func (r createRegistrationInput) GetParticipants() []ParticipantInput { return r.participants }

func TestCreateRegistrationAssignsNumberAndUniqueAmount(t *testing.T) {
	f := newServiceFixture()

	registration, err := f.svc.CreateRegistration(context.Background(), createRegistrationInput{
		ticketType:  "symposium",
		totalAmount: 500000,
		participants: []ParticipantInput{
			{FullName: "Dewi Lestari", Email: "dewi@example.id", Phone: "0811111111"},
		},
	})
	if err != nil {
		t.Fatalf("create registration failed: %v", err)
	}

	if registration.RegistrationNumber != "MCVU-00000001" {
		t.Fatalf("unexpected registration number %q", registration.RegistrationNumber)
	}
	expected := int64(500000) + int64(registration.ID%uniqueAmountModulus)
	if registration.FinalAmount != expected {
		t.Fatalf("expected final amount %d, got %d", expected, registration.FinalAmount)
	}
	if registration.Status != entity.RegistrationStatusAwaitingPayment {
		t.Fatalf("expected awaiting_payment status, got %q", registration.Status)
	}

	payment, err := f.paymentRepo.FindPendingByRegistrationID(context.Background(), registration.ID)
	if err != nil || payment == nil {
		t.Fatalf("expected pending payment, got %v (err=%v)", payment, err)
	}
	if payment.Amount != registration.FinalAmount {
		t.Fatalf("payment amount %d does not track final amount %d", payment.Amount, registration.FinalAmount)
	}

	open, _ := f.taskRepo.HasOpenTask(context.Background(), entity.TaskTypePaymentCheck, registration.ID)
	if !open {
		t.Fatal("expected an initial payment-check task to be scheduled")
	}
}

func TestCreateRegistrationIssuesQRTokenPerParticipant(t *testing.T) {
	f := newServiceFixture()

	registration, err := f.svc.CreateRegistration(context.Background(), createRegistrationInput{
		ticketType:  "workshop",
		totalAmount: 750000,
		participants: []ParticipantInput{
			{FullName: "Andi", Email: "andi@example.id"},
			{FullName: "Budi", Email: "budi@example.id"},
		},
	})
	if err != nil {
		t.Fatalf("create registration failed: %v", err)
	}

	participants, _ := f.participantRepo.ListByRegistration(context.Background(), registration.ID)
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	if participants[0].QRToken == "" || participants[1].QRToken == "" {
		t.Fatal("expected each participant to carry a QR token")
	}
	if participants[0].QRToken == participants[1].QRToken {
		t.Fatal("expected distinct QR tokens")
	}
}

func TestCreateRegistrationRequiresParticipants(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.CreateRegistration(context.Background(), createRegistrationInput{
		ticketType:  "symposium",
		totalAmount: 500000,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCheckInRejectsUnpaidRegistration(t *testing.T) {
	f := newServiceFixture()

	registration, err := f.svc.CreateRegistration(context.Background(), createRegistrationInput{
		ticketType:  "symposium",
		totalAmount: 500000,
		participants: []ParticipantInput{
			{FullName: "Dewi", Email: "dewi@example.id"},
		},
	})
	if err != nil {
		t.Fatalf("create registration failed: %v", err)
	}

	participants, _ := f.participantRepo.ListByRegistration(context.Background(), registration.ID)
	_, _, err = f.svc.CheckIn(context.Background(), participants[0].QRToken)
	if !errors.Is(err, ErrRegistrationNotPaid) {
		t.Fatalf("expected ErrRegistrationNotPaid, got %v", err)
	}
}

func TestCheckInProgressesToEntriedWhenAllScanned(t *testing.T) {
	f := newServiceFixture()

	registration, err := f.svc.CreateRegistration(context.Background(), createRegistrationInput{
		ticketType:  "symposium",
		totalAmount: 500000,
		participants: []ParticipantInput{
			{FullName: "Andi", Email: "andi@example.id"},
			{FullName: "Budi", Email: "budi@example.id"},
		},
	})
	if err != nil {
		t.Fatalf("create registration failed: %v", err)
	}
	f.registrationRepo.registrations[registration.ID].Status = entity.RegistrationStatusPaid

	participants, _ := f.participantRepo.ListByRegistration(context.Background(), registration.ID)

	_, updated, err := f.svc.CheckIn(context.Background(), participants[0].QRToken)
	if err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}
	if updated.Status != entity.RegistrationStatusCheckedIn {
		t.Fatalf("expected checked_in after first scan, got %q", updated.Status)
	}

	_, updated, err = f.svc.CheckIn(context.Background(), participants[1].QRToken)
	if err != nil {
		t.Fatalf("second check-in failed: %v", err)
	}
	if updated.Status != entity.RegistrationStatusEntried {
		t.Fatalf("expected entried after all scans, got %q", updated.Status)
	}
}

func TestCheckInUnknownTokenIsNotFound(t *testing.T) {
	f := newServiceFixture()

	_, _, err := f.svc.CheckIn(context.Background(), "no-such-token")
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}
