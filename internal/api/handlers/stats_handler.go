package handlers

import (
	"net/http"

	"chainarb/internal/service"
)

// StatsHandler отвечает за агрегированную статистику
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler создает handler статистики
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats возвращает агрегированную статистику по сделкам
// GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetStatus возвращает текущее состояние движка
// GET /api/v1/status
func (h *StatsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_executions": h.stats.ActiveCount(),
	})
}
