package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/travel-bookings/internal/checkout"
	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/utils"
	"github.com/voyago/travel-bookings/pkg/logger"
)

type CheckoutHandler struct {
	sessions checkout.SessionCreator
}

func NewCheckoutHandler(sessions checkout.SessionCreator) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions}
}

func (h *CheckoutHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/session", h.createSession)
	return r
}

type checkoutRequest struct {
	BookingType   string            `json:"bookingType"`
	Offer         domain.Offer      `json:"offer"`
	Details       json.RawMessage   `json:"details"`
	Price         float64           `json:"price"`
	Currency      string            `json:"currency"`
	Provider      string            `json:"provider"`
	AddProtection bool              `json:"addProtection"`
	Customer      checkout.Customer `json:"customer"`
}

func (h *CheckoutHandler) createSession(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	req.Customer.Email = utils.NormalizeEmail(req.Customer.Email)
	req.Customer.Phone = utils.NormalizePhone(req.Customer.Phone)
	if req.Customer.FirstName == "" || req.Customer.LastName == "" || req.Customer.Email == "" {
		writeError(w, http.StatusBadRequest, "customer name and email are required")
		return
	}
	if !utils.IsValidEmail(req.Customer.Email) {
		writeError(w, http.StatusBadRequest, "invalid customer email")
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	if req.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}
	if len(req.Details) == 0 {
		writeError(w, http.StatusBadRequest, "details is required")
		return
	}

	url, err := h.sessions.CreateSession(r.Context(), checkout.EncodeRequest{
		BookingType:   domain.BookingType(strings.ToLower(req.BookingType)),
		Offer:         req.Offer,
		Details:       req.Details,
		Price:         req.Price,
		Currency:      req.Currency,
		Provider:      req.Provider,
		AddProtection: req.AddProtection,
		UserID:        claims.Sub,
		Customer:      req.Customer,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidBookingType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Failed to create checkout session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
