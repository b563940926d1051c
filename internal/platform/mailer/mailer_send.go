package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/voyago/travel-bookings/internal/domain"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or EMAIL_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendReceipt(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error {
	subject, text, html := receiptEmail(b, rec)
	_, err := m.Send(b.CustomerEmail, b.CustomerName, subject, text, html)
	return err
}

func receiptEmail(b *domain.Booking, rec *domain.Receipt) (subject, text, html string) {
	subject = fmt.Sprintf("Your booking %s is confirmed", b.BookingID)
	text = fmt.Sprintf(
		"Hi %s,\n\nYour %s booking is confirmed.\n\nBooking: %s\nReceipt: %s\nAmount: %.2f %s\n\nThank you for booking with us.",
		b.CustomerName, b.BookingType, b.BookingID, rec.ReceiptID, b.Amount, b.Currency,
	)
	html = fmt.Sprintf(
		`<p>Hi %s,</p><p>Your %s booking is confirmed.</p>
<p>Booking: <b>%s</b><br>Receipt: %s<br>Amount: <b>%.2f %s</b></p>
<p>Thank you for booking with us.</p>`,
		b.CustomerName, b.BookingType, b.BookingID, rec.ReceiptID, b.Amount, b.Currency,
	)
	return subject, text, html
}
