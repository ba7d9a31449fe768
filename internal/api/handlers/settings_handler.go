package handlers

import (
	"net/http"

	"chainarb/internal/service"
)

// SettingsHandler отвечает за управление торговыми настройками.
// Изменения применяются со следующего цикла сканирования и никогда
// не затрагивают уже исполняющиеся сделки.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler создает handler настроек
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings возвращает текущие настройки
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.GetSettings())
}

// UpdateSettings применяет частичное обновление настроек
// PATCH /api/v1/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.settings.UpdateSettings(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// ResetSettings сбрасывает настройки к значениям по умолчанию
// POST /api/v1/settings/reset
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.ResetToDefaults()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
