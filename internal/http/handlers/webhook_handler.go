package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/reconcile"
	"github.com/voyago/travel-bookings/pkg/logger"
)

// Stripe caps event payloads well below this; anything larger is garbage.
const maxWebhookBody = 1 << 16

// WebhookProcessor is satisfied by the reconciler.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, sigHeader string) (*reconcile.Result, error)
}

type WebhookHandler struct {
	processor WebhookProcessor
}

func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/stripe", h.stripe)
	return r
}

// stripe acknowledges with 2xx only when the delivery is fully resolved:
// recorded, recognized as a duplicate, ignored, or escalated to manual
// review. 5xx keeps the processor retrying; 4xx tells it the delivery can
// never succeed.
func (h *WebhookHandler) stripe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	result, err := h.processor.Process(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureInvalid):
			writeError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, domain.ErrMissingBookingType),
			errors.Is(err, domain.ErrInvalidBookingType),
			errors.Is(err, domain.ErrMetadataDecode):
			logger.ErrorContext(r.Context(), "Webhook metadata rejected", "error", err)
			writeError(w, http.StatusBadRequest, "malformed event metadata")
		default:
			logger.ErrorContext(r.Context(), "Webhook processing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "processing failed")
		}
		return
	}

	resp := map[string]any{"received": true, "outcome": string(result.Outcome)}
	if result.Booking != nil {
		resp["bookingId"] = result.Booking.BookingID
	}
	if result.Receipt != nil {
		resp["receiptId"] = result.Receipt.ReceiptID
	}
	writeJSON(w, http.StatusOK, resp)
}
