package handlers

import (
	"errors"
	"net/http"

	"chainarb/internal/bot"
	"chainarb/internal/models"
	"chainarb/internal/service"

	"github.com/gorilla/mux"
)

// TradeHandler отвечает за чтение и управление сделками
//
// Функции:
// - Список активных сделок (GET /api/v1/trades)
// - История терминальных сделок (GET /api/v1/trades/history)
// - Сделки с застрявшими позициями (GET /api/v1/trades/stranded)
// - Одна сделка по ID (GET /api/v1/trades/{id})
// - Запрос отмены (POST /api/v1/trades/{id}/cancel)
// - Восстановление застрявшей позиции (POST /api/v1/trades/{id}/recover)
type TradeHandler struct {
	trades *service.TradeService
}

// NewTradeHandler создает handler сделок
func NewTradeHandler(trades *service.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// GetActiveTrades возвращает нетерминальные сделки
// GET /api/v1/trades
func (h *TradeHandler) GetActiveTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.trades.ListActive()
	if trades == nil {
		trades = []*models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetTradeHistory возвращает терминальные сделки, новые первыми
// GET /api/v1/trades/history?limit=50
func (h *TradeHandler) GetTradeHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	trades, err := h.trades.ListHistory(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load trade history")
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetStrandedTrades возвращает сделки с незакрытой застрявшей позицией
// GET /api/v1/trades/stranded
func (h *TradeHandler) GetStrandedTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ListStranded()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stranded trades")
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetTrade возвращает сделку по ID
// GET /api/v1/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trade, err := h.trades.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// CancelTrade запрашивает отмену активной сделки. Отмена применяется
// в ближайшей безопасной точке: уже отправленная нога доисполняется.
// POST /api/v1/trades/{id}/cancel
func (h *TradeHandler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.trades.Cancel(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, SuccessResponse{Message: "cancellation requested"})
	case errors.Is(err, service.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, "trade not found")
	case errors.Is(err, bot.ErrNotCancellable):
		writeError(w, http.StatusConflict, "trade is not cancellable in its current state")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// RecoverTrade запускает восстановление застрявшей позиции:
// отдельная disposal-only сделка продаёт застрявший токен.
// POST /api/v1/trades/{id}/recover
func (h *TradeHandler) RecoverTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trade, err := h.trades.Recover(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, trade)
	case errors.Is(err, bot.ErrNoStrandedPosition):
		writeError(w, http.StatusConflict, "trade has no stranded position to recover")
	case errors.Is(err, bot.ErrDuplicateInFlight):
		writeError(w, http.StatusConflict, "recovery already in progress")
	case errors.Is(err, bot.ErrExecutionLimit):
		writeError(w, http.StatusTooManyRequests, "max concurrent executions reached")
	case errors.Is(err, bot.ErrVenueNotFound):
		writeError(w, http.StatusUnprocessableEntity, "no venue available on the stranded chain")
	default:
		writeError(w, http.StatusNotFound, "trade not found")
	}
}
