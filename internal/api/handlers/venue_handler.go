package handlers

import (
	"errors"
	"net/http"

	"chainarb/internal/models"
	"chainarb/internal/repository"
	"chainarb/internal/service"

	"github.com/gorilla/mux"
)

// VenueHandler отвечает за управление аккаунтами торговых площадок.
// Ключи принимаются в открытом виде по HTTPS, шифруются сервисом
// и никогда не возвращаются в ответах.
type VenueHandler struct {
	venues *service.VenueService
}

// NewVenueHandler создает handler аккаунтов площадок
func NewVenueHandler(venues *service.VenueService) *VenueHandler {
	return &VenueHandler{venues: venues}
}

// GetVenues возвращает аккаунты без секретов
// GET /api/v1/venues
func (h *VenueHandler) GetVenues(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.venues.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load venue accounts")
		return
	}
	if accounts == nil {
		accounts = []*models.VenueAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// AddVenue сохраняет новый аккаунт площадки
// POST /api/v1/venues {"venue": "uniswap", "chain": "ethereum", "api_key": "...", "secret_key": "..."}
func (h *VenueHandler) AddVenue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Venue     string `json:"venue"`
		Chain     string `json:"chain"`
		APIKey    string `json:"api_key"`
		SecretKey string `json:"secret_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Venue == "" || req.Chain == "" {
		writeError(w, http.StatusBadRequest, "venue and chain are required")
		return
	}

	account, err := h.venues.Add(req.Venue, req.Chain, req.APIKey, req.SecretKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// UpdateVenueKeys заменяет ключи аккаунта
// PATCH /api/v1/venues/{name}/keys
func (h *VenueHandler) UpdateVenueKeys(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req struct {
		APIKey    string `json:"api_key"`
		SecretKey string `json:"secret_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.venues.UpdateKeys(name, req.APIKey, req.SecretKey)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Message: "keys updated"})
	case errors.Is(err, repository.ErrVenueAccountNotFound):
		writeError(w, http.StatusNotFound, "venue account not found")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// RemoveVenue удаляет аккаунт площадки
// DELETE /api/v1/venues/{name}
func (h *VenueHandler) RemoveVenue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	err := h.venues.Remove(name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrVenueAccountNotFound):
		writeError(w, http.StatusNotFound, "venue account not found")
	default:
		writeError(w, http.StatusInternalServerError, "failed to remove venue account")
	}
}
