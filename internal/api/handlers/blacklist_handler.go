package handlers

import (
	"errors"
	"net/http"

	"chainarb/internal/models"
	"chainarb/internal/repository"
	"chainarb/internal/service"

	"github.com/gorilla/mux"
)

// BlacklistHandler отвечает за управление черным списком токенов.
// Токены из списка исключаются из сканирования со следующего цикла.
type BlacklistHandler struct {
	blacklist *service.BlacklistService
}

// NewBlacklistHandler создает handler черного списка
func NewBlacklistHandler(blacklist *service.BlacklistService) *BlacklistHandler {
	return &BlacklistHandler{blacklist: blacklist}
}

// GetBlacklist возвращает весь черный список
// GET /api/v1/blacklist
func (h *BlacklistHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklist.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load blacklist")
		return
	}
	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// AddToBlacklist добавляет токен в черный список
// POST /api/v1/blacklist {"token": "SHIB", "reason": "low liquidity"}
func (h *BlacklistHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.blacklist.Add(req.Token, req.Reason)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, entry)
	case errors.Is(err, repository.ErrBlacklistEntryExists):
		writeError(w, http.StatusConflict, "token already blacklisted")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// RemoveFromBlacklist удаляет токен из черного списка
// DELETE /api/v1/blacklist/{token}
func (h *BlacklistHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	err := h.blacklist.Remove(token)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrBlacklistEntryNotFound):
		writeError(w, http.StatusNotFound, "token not in blacklist")
	default:
		writeError(w, http.StatusInternalServerError, "failed to remove token")
	}
}
