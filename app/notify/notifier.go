package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
	"github.com/mcvu-symposium/ms-go-registration/app/factory"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// EmailNotifier composes and dispatches the payment-confirmation email:
// one invoice PDF plus a QR ticket PNG per participant.
type EmailNotifier struct {
	mailer    Mailer
	eventName string
	logger    logrus.FieldLogger
}

func NewEmailNotifier(mailer Mailer, eventName string) *EmailNotifier {
	return &EmailNotifier{
		mailer:    mailer,
		eventName: eventName,
		logger:    factory.NewModuleLogger("notifier"),
	}
}

func (n *EmailNotifier) SendPaymentConfirmation(ctx context.Context, registration *entity.Registration, participants []*entity.Participant, payment *entity.Payment) error {
	recipients := recipientAddresses(participants)
	if len(recipients) == 0 {
		return fmt.Errorf("registration %s has no participant email addresses", registration.RegistrationNumber)
	}

	attachments := make([]Attachment, 0, len(participants)+1)

	invoice, err := BuildInvoicePDF(n.eventName, registration, participants, payment)
	if err != nil {
		return fmt.Errorf("build invoice: %w", err)
	}
	attachments = append(attachments, Attachment{
		Filename: "invoice-" + registration.RegistrationNumber + ".pdf",
		Content:  invoice,
	})

	for _, participant := range participants {
		png, err := qrcode.Encode(participant.QRToken, qrcode.Medium, qrImageSize)
		if err != nil {
			return fmt.Errorf("build qr for participant %d: %w", participant.ID, err)
		}
		attachments = append(attachments, Attachment{
			Filename: fmt.Sprintf("ticket-%s-%d.png", registration.RegistrationNumber, participant.ID),
			Content:  png,
		})
	}

	message := &Message{
		To:          recipients,
		Subject:     fmt.Sprintf("%s - Payment confirmed (%s)", n.eventName, registration.RegistrationNumber),
		HTML:        n.buildConfirmationHTML(registration, participants, payment),
		Attachments: attachments,
	}

	if err := n.mailer.Send(ctx, message); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"registration_number": registration.RegistrationNumber,
		"recipients":          len(recipients),
	}).Info("Payment confirmation sent")

	return nil
}

func (n *EmailNotifier) buildConfirmationHTML(registration *entity.Registration, participants []*entity.Participant, payment *entity.Payment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h2>%s</h2>", n.eventName)
	fmt.Fprintf(&b, "<p>Your payment for registration <strong>%s</strong> has been verified.</p>", registration.RegistrationNumber)
	fmt.Fprintf(&b, "<p>Amount: <strong>%s</strong></p>", formatRupiah(payment.Amount))
	b.WriteString("<p>Your tickets are attached. Each participant has an individual QR code; present it at the venue for check-in.</p>")
	b.WriteString("<ul>")
	for _, participant := range participants {
		fmt.Fprintf(&b, "<li>%s</li>", participant.FullName)
	}
	b.WriteString("</ul>")
	b.WriteString("<p>See you at the symposium.</p>")

	return b.String()
}

func recipientAddresses(participants []*entity.Participant) []string {
	seen := make(map[string]struct{}, len(participants))
	recipients := make([]string, 0, len(participants))
	for _, participant := range participants {
		address := strings.ToLower(strings.TrimSpace(participant.Email))
		if address == "" {
			continue
		}
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		recipients = append(recipients, address)
	}
	return recipients
}
