package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

type fakeMailer struct {
	sent []*Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, message *Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, message)
	return nil
}

func notifierFixtures() (*entity.Registration, []*entity.Participant, *entity.Payment) {
	registration := &entity.Registration{
		ID:                 1,
		RegistrationNumber: "MCVU-00000001",
		TicketType:         "symposium",
		TotalAmount:        500000,
		DiscountAmount:     0,
		Status:             entity.RegistrationStatusPaid,
	}
	participants := []*entity.Participant{
		{ID: 1, RegistrationID: 1, FullName: "Andi Wijaya", Email: "Andi@Example.com", QRToken: "token-1"},
		{ID: 2, RegistrationID: 1, FullName: "Budi Santoso", Email: "budi@example.com", QRToken: "token-2"},
		{ID: 3, RegistrationID: 1, FullName: "Citra Dewi", Email: "andi@example.com", QRToken: "token-3"},
	}
	payment := &entity.Payment{
		ID:             1,
		RegistrationID: 1,
		Amount:         500001,
		Status:         entity.PaymentStatusVerified,
	}
	return registration, participants, payment
}

func TestSendPaymentConfirmationAttachesInvoiceAndTickets(t *testing.T) {
	mailer := &fakeMailer{}
	notifier := NewEmailNotifier(mailer, "MCVU 2025 Symposium")
	registration, participants, payment := notifierFixtures()

	if err := notifier.SendPaymentConfirmation(context.Background(), registration, participants, payment); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mailer.sent))
	}
	message := mailer.sent[0]

	if len(message.Attachments) != 4 {
		t.Fatalf("expected invoice plus 3 tickets, got %d attachments", len(message.Attachments))
	}
	if message.Attachments[0].Filename != "invoice-MCVU-00000001.pdf" {
		t.Fatalf("unexpected invoice filename: %s", message.Attachments[0].Filename)
	}
	if !bytes.HasPrefix(message.Attachments[0].Content, []byte("%PDF")) {
		t.Fatal("expected invoice attachment to be a PDF")
	}
	for _, attachment := range message.Attachments[1:] {
		if !strings.HasPrefix(attachment.Filename, "ticket-MCVU-00000001-") {
			t.Fatalf("unexpected ticket filename: %s", attachment.Filename)
		}
		if len(attachment.Content) == 0 {
			t.Fatalf("ticket %s has no content", attachment.Filename)
		}
	}

	if !strings.Contains(message.Subject, "MCVU-00000001") {
		t.Fatalf("unexpected subject: %s", message.Subject)
	}
	if !strings.Contains(message.HTML, "Andi Wijaya") {
		t.Fatal("expected participant name in body")
	}
}

func TestSendPaymentConfirmationDeduplicatesRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	notifier := NewEmailNotifier(mailer, "MCVU 2025 Symposium")
	registration, participants, payment := notifierFixtures()

	if err := notifier.SendPaymentConfirmation(context.Background(), registration, participants, payment); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	to := mailer.sent[0].To
	if len(to) != 2 {
		t.Fatalf("expected 2 distinct recipients, got %v", to)
	}
	if to[0] != "andi@example.com" || to[1] != "budi@example.com" {
		t.Fatalf("unexpected recipients: %v", to)
	}
}

func TestSendPaymentConfirmationRequiresRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	notifier := NewEmailNotifier(mailer, "MCVU 2025 Symposium")
	registration, _, payment := notifierFixtures()
	participants := []*entity.Participant{
		{ID: 1, RegistrationID: 1, FullName: "Andi Wijaya", Email: "   ", QRToken: "token-1"},
	}

	err := notifier.SendPaymentConfirmation(context.Background(), registration, participants, payment)
	if err == nil {
		t.Fatal("expected error for missing recipients")
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no send attempt, got %d", len(mailer.sent))
	}
}

func TestSendPaymentConfirmationPropagatesMailerError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("provider down")}
	notifier := NewEmailNotifier(mailer, "MCVU 2025 Symposium")
	registration, participants, payment := notifierFixtures()

	err := notifier.SendPaymentConfirmation(context.Background(), registration, participants, payment)
	if err == nil {
		t.Fatal("expected mailer error to propagate")
	}
}

func TestBuildInvoicePDFIncludesRegistrationDetails(t *testing.T) {
	registration, participants, payment := notifierFixtures()

	pdf, err := BuildInvoicePDF("MCVU 2025 Symposium", registration, participants, payment)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected PDF header")
	}
	if len(pdf) < 500 {
		t.Fatalf("invoice suspiciously small: %d bytes", len(pdf))
	}
}
