package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/repo/postgres"
	"github.com/voyago/travel-bookings/internal/vault"
	"github.com/voyago/travel-bookings/pkg/logger"
)

// ProvidersHandler is the admin surface for provider records. Credentials go
// in through the vault and only descriptors ever come out.
type ProvidersHandler struct {
	vault *vault.Vault
	repo  postgres.ProviderRepository
}

func NewProvidersHandler(v *vault.Vault, repo postgres.ProviderRepository) *ProvidersHandler {
	return &ProvidersHandler{vault: v, repo: repo}
}

func (h *ProvidersHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.upsert)
	r.Get("/{providerID}", h.get)
	r.Post("/{providerID}/rotate", h.rotate)
	return r
}

type upsertProviderRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsActive  bool   `json:"isActive"`
	BaseURL   string `json:"baseUrl"`
	APIKey    string `json:"apiKey,omitempty"`
	APISecret string `json:"apiSecret,omitempty"`
}

func (h *ProvidersHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ID == "" || req.Name == "" || req.BaseURL == "" {
		writeError(w, http.StatusBadRequest, "id, name and baseUrl are required")
		return
	}
	if _, ok := domain.ParseProviderType(req.Type); !ok {
		writeError(w, http.StatusBadRequest, "invalid provider type")
		return
	}

	p := &domain.Provider{
		ID:        req.ID,
		Name:      req.Name,
		Type:      domain.ProviderType(req.Type),
		IsActive:  req.IsActive,
		BaseURL:   req.BaseURL,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}
	if err := h.vault.Store(r.Context(), p); err != nil {
		logger.ErrorContext(r.Context(), "Failed to store provider", "provider", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store provider")
		return
	}

	logger.InfoContext(r.Context(), "Provider stored", "provider", req.ID, "has_credentials", p.HasCredentials())
	writeJSON(w, http.StatusOK, p.Descriptor())
}

func (h *ProvidersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	descs, err := h.repo.Descriptors(r.Context(), []string{id})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get provider", "provider", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get provider")
		return
	}
	if len(descs) == 0 {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, descs[0])
}

type rotateRequest struct {
	APIKey    string `json:"apiKey,omitempty"`
	APISecret string `json:"apiSecret,omitempty"`
}

func (h *ProvidersHandler) rotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.APIKey == "" && req.APISecret == "" {
		writeError(w, http.StatusBadRequest, "nothing to rotate")
		return
	}

	id := chi.URLParam(r, "providerID")
	if err := h.vault.Rotate(r.Context(), id, req.APIKey, req.APISecret); err != nil {
		if errors.Is(err, domain.ErrDecryption) {
			writeError(w, http.StatusConflict, "existing credentials cannot be decrypted; re-store the provider")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to rotate credentials", "provider", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rotate credentials")
		return
	}

	logger.InfoContext(r.Context(), "Provider credentials rotated", "provider", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "rotated"})
}
