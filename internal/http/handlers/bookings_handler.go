package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/repo/postgres"
	"github.com/voyago/travel-bookings/pkg/logger"
)

type BookingsHandler struct {
	repo postgres.BookingRepository
}

func NewBookingsHandler(repo postgres.BookingRepository) *BookingsHandler {
	return &BookingsHandler{repo: repo}
}

func (h *BookingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{bookingID}", h.getByID)
	r.Get("/{bookingID}/receipt", h.getReceipt)
	return r
}

func (h *BookingsHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listAll)
	r.Patch("/{bookingID}", h.updateStatus)
	return r
}

func (h *BookingsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit, offset := parsePagination(r)
	bookings, err := h.repo.ListByUser(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "user_id", claims.Sub, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

func (h *BookingsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	bookings, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

// getByID returns a booking to its owner or to an admin, and a 404 to
// everyone else so booking ids are not probeable.
func (h *BookingsHandler) getByID(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	b, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get booking")
		return
	}
	if b == nil || (b.UserID != claims.Sub && claims.Role != "admin") {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) getReceipt(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	bookingID := chi.URLParam(r, "bookingID")
	b, err := h.repo.GetByID(r.Context(), bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get receipt")
		return
	}
	if b == nil || (b.UserID != claims.Sub && claims.Role != "admin") {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	rec, err := h.repo.GetReceipt(r.Context(), bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get receipt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get receipt")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type updateStatusRequest struct {
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	IsRefundable  *bool   `json:"is_refundable,omitempty"`
}

func (h *BookingsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Status == nil && req.PaymentStatus == nil && req.IsRefundable == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var patch domain.BookingPatch
	if req.Status != nil {
		s, ok := domain.ParseBookingStatus(*req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		patch.Status = &s
	}
	if req.PaymentStatus != nil {
		s, ok := domain.ParsePaymentStatus(*req.PaymentStatus)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid payment_status")
			return
		}
		patch.PaymentStatus = &s
	}
	patch.IsRefundable = req.IsRefundable

	by := domain.UpdatedBy{UserID: claims.Sub, Name: claims.Email, Role: claims.Role}
	b, err := h.repo.UpdateStatus(r.Context(), chi.URLParam(r, "bookingID"), patch, by)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to update booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update booking")
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	logger.InfoContext(r.Context(), "Booking status updated",
		"booking_id", b.BookingID, "by", claims.Sub, "role", claims.Role)
	writeJSON(w, http.StatusOK, b)
}
