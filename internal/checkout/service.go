package checkout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/voyago/travel-bookings/pkg/logger"
)

// SessionCreator is what the HTTP layer depends on.
type SessionCreator interface {
	CreateSession(ctx context.Context, req EncodeRequest) (string, error)
}

type Service struct {
	successURL string
	cancelURL  string
}

func NewService(successURL, cancelURL string) *Service {
	return &Service{successURL: successURL, cancelURL: cancelURL}
}

// CreateSession encodes the booking intent into a hosted checkout session
// and returns the redirect URL. Encoding failures surface before any
// processor call, so no partial session is ever created.
func (s *Service) CreateSession(ctx context.Context, req EncodeRequest) (string, error) {
	li, meta, err := Encode(req)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(req.Customer.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(li.Currency),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(li.Name),
					Description: stripe.String(li.Description),
				},
			},
		}},
	}
	params.Context = ctx
	params.Metadata = meta

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	logger.InfoContext(ctx, "Created checkout session",
		"session_id", sess.ID, "booking_type", req.BookingType, "amount", li.UnitAmount)
	return sess.URL, nil
}
