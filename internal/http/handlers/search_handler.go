package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/logger"
)

// OfferSearcher is satisfied by the search aggregator.
type OfferSearcher interface {
	Search(ctx context.Context, providerIDs []string, params domain.SearchParams) ([]domain.Offer, error)
}

type SearchHandler struct {
	searcher OfferSearcher
	timeout  time.Duration
}

func NewSearchHandler(searcher OfferSearcher, timeout time.Duration) *SearchHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearchHandler{searcher: searcher, timeout: timeout}
}

func (h *SearchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.search)
	return r
}

type searchRequest struct {
	Providers []string            `json:"providers"`
	Params    domain.SearchParams `json:"params"`
}

type searchResponse struct {
	Data    []domain.Offer `json:"data"`
	Success bool           `json:"success"`
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSearchError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Providers) == 0 {
		writeSearchError(w, http.StatusBadRequest, "providers is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offers, err := h.searcher.Search(ctx, req.Providers, req.Params)
	if err != nil {
		if errors.Is(err, domain.ErrNoProvidersAvailable) {
			writeSearchError(w, http.StatusServiceUnavailable, "no providers available")
			return
		}
		logger.ErrorContext(r.Context(), "Search failed", "error", err)
		writeSearchError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if offers == nil {
		offers = []domain.Offer{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Data: offers, Success: true})
}

func writeSearchError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"error": message, "success": false})
}
