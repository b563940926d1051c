package mailer

import (
	"context"

	"github.com/voyago/travel-bookings/internal/domain"
)

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendReceipt(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error
}
