package notify

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

// BuildInvoicePDF renders the payment invoice attached to the confirmation
// email.
func BuildInvoicePDF(eventName string, registration *entity.Registration, participants []*entity.Participant, payment *entity.Payment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, eventName)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Payment Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	writeRow := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	writeRow("Registration number", registration.RegistrationNumber)
	writeRow("Ticket type", registration.TicketType)
	writeRow("Total", formatRupiah(registration.TotalAmount))
	writeRow("Discount", formatRupiah(registration.DiscountAmount))
	writeRow("Amount paid", formatRupiah(payment.Amount))
	writeRow("Status", payment.Status)
	writeRow("Issued", time.Now().UTC().Format("2 January 2006"))

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Participants")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	for i, participant := range participants {
		pdf.CellFormat(0, 7, fmt.Sprintf("%d. %s <%s>", i+1, participant.FullName, participant.Email), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatRupiah(amount int64) string {
	return fmt.Sprintf("Rp %d", amount)
}
