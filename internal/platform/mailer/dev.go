package mailer

import (
	"context"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/logger"
)

// DevMailer logs emails instead of sending them. It is the default when no
// MailerSend key is configured, so local runs never need SMTP.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("📧 [DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"body", text,
	)
	return "", nil
}

func (d *DevMailer) SendReceipt(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error {
	subject, text, _ := receiptEmail(b, rec)
	logger.InfoContext(ctx, "📧 [DEV MAIL] Receipt",
		"to", b.CustomerEmail,
		"subject", subject,
		"booking_id", b.BookingID,
		"receipt_id", rec.ReceiptID,
		"body", text,
	)
	return nil
}
