package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"chainarb/internal/models"
	"chainarb/internal/repository"
	"chainarb/internal/service"

	"github.com/gorilla/mux"
)

// WatchlistHandler отвечает за управление списком отслеживаемых пар
type WatchlistHandler struct {
	watchlist *service.WatchlistService
}

// NewWatchlistHandler создает handler watchlist
func NewWatchlistHandler(watchlist *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist}
}

// GetWatchlist возвращает все отслеживаемые пары
// GET /api/v1/watchlist
func (h *WatchlistHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.watchlist.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}
	if pairs == nil {
		pairs = []*models.WatchPair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}

// AddPair добавляет пару в watchlist
// POST /api/v1/watchlist {"base": "ETH", "quote": "USDC"}
func (h *WatchlistHandler) AddPair(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base  string `json:"base"`
		Quote string `json:"quote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.watchlist.Add(req.Base, req.Quote)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, pair)
	case errors.Is(err, repository.ErrPairExists):
		writeError(w, http.StatusConflict, "pair already in watchlist")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// SetPairStatus переключает пару между active и paused
// PATCH /api/v1/watchlist/{id} {"status": "paused"}
func (h *WatchlistHandler) SetPairStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.watchlist.SetStatus(id, req.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Message: "status updated"})
	case errors.Is(err, service.ErrInvalidPairStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrPairNotFound):
		writeError(w, http.StatusNotFound, "pair not found")
	default:
		writeError(w, http.StatusInternalServerError, "failed to update status")
	}
}

// RemovePair удаляет пару из watchlist
// DELETE /api/v1/watchlist/{id}
func (h *WatchlistHandler) RemovePair(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair id")
		return
	}

	err = h.watchlist.Remove(id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrPairNotFound):
		writeError(w, http.StatusNotFound, "pair not found")
	default:
		writeError(w, http.StatusInternalServerError, "failed to remove pair")
	}
}
