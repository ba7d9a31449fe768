package handlers

import (
	"net/http"
	"time"

	"chainarb/internal/models"
	"chainarb/internal/service"
)

// OpportunityHandler отдаёт возможности текущего цикла сканирования.
// Список эфемерен: следующий цикл замещает его целиком.
type OpportunityHandler struct {
	trades *service.TradeService
	window time.Duration
}

// NewOpportunityHandler создает handler возможностей
func NewOpportunityHandler(trades *service.TradeService, stalenessWindow time.Duration) *OpportunityHandler {
	return &OpportunityHandler{trades: trades, window: stalenessWindow}
}

// GetOpportunities возвращает неустаревшие возможности
// GET /api/v1/opportunities
func (h *OpportunityHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	opportunities := h.trades.ListOpportunities(h.window)
	if opportunities == nil {
		opportunities = []*models.Opportunity{}
	}
	writeJSON(w, http.StatusOK, opportunities)
}
