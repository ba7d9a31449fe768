package handlers

import (
	"net/http"
)

// ScanTrigger запускает внеочередной цикл сканирования
type ScanTrigger interface {
	ScanNow()
}

// ScanHandler отвечает за ручной запуск сканирования
type ScanHandler struct {
	trigger ScanTrigger
}

// NewScanHandler создает handler запуска сканирования
func NewScanHandler(trigger ScanTrigger) *ScanHandler {
	return &ScanHandler{trigger: trigger}
}

// TriggerScan запускает цикл сканирования вне расписания.
// Если цикл уже запланирован, запрос поглощается без очереди.
// POST /api/v1/scan
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	h.trigger.ScanNow()
	writeJSON(w, http.StatusAccepted, SuccessResponse{Message: "scan scheduled"})
}
