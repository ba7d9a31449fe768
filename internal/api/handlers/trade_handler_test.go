package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainarb/internal/models"

	"github.com/gorilla/mux"
)

// ============ TradeHandler Tests ============

func TestTradeHandler_GetActiveTrades(t *testing.T) {
	t.Run("returns empty list when no trades", func(t *testing.T) {
		handler, _ := newTestTradeHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
		w := httptest.NewRecorder()

		handler.GetActiveTrades(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var trades []*models.Trade
		if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(trades) != 0 {
			t.Errorf("expected 0 trades, got %d", len(trades))
		}
	})

	t.Run("returns active trades", func(t *testing.T) {
		handler, reg := newTestTradeHandler(t)

		trade := &models.Trade{
			ID:          "trade-1",
			Fingerprint: "ethereum|polygon|ETH/USDC|1035",
			State:       models.TradePending,
		}
		if err := reg.BeginTrade(trade); err != nil {
			t.Fatalf("failed to begin trade: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
		w := httptest.NewRecorder()

		handler.GetActiveTrades(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var trades []*models.Trade
		if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(trades) != 1 {
			t.Fatalf("expected 1 trade, got %d", len(trades))
		}
		if trades[0].ID != "trade-1" {
			t.Errorf("expected trade-1, got %s", trades[0].ID)
		}
	})
}

func TestTradeHandler_GetTradeHistory(t *testing.T) {
	handler, reg := newTestTradeHandler(t)

	seedHistoryTrade(t, reg, &models.Trade{
		ID:          "trade-1",
		Fingerprint: "ethereum|polygon|ETH/USDC|1035",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/history?limit=10", nil)
	w := httptest.NewRecorder()

	handler.GetTradeHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var trades []*models.Trade
	if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].State != models.TradeSettled {
		t.Errorf("expected SETTLED state, got %s", trades[0].State)
	}
}

func TestTradeHandler_GetTrade(t *testing.T) {
	t.Run("returns trade by id", func(t *testing.T) {
		handler, reg := newTestTradeHandler(t)

		trade := &models.Trade{
			ID:          "trade-1",
			Fingerprint: "ethereum|polygon|ETH/USDC|1035",
			State:       models.TradeAcquiring,
		}
		if err := reg.BeginTrade(trade); err != nil {
			t.Fatalf("failed to begin trade: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/trade-1", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "trade-1"})
		w := httptest.NewRecorder()

		handler.GetTrade(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var got models.Trade
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ID != "trade-1" {
			t.Errorf("expected trade-1, got %s", got.ID)
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		handler, _ := newTestTradeHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/missing", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.GetTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestTradeHandler_CancelTrade(t *testing.T) {
	t.Run("returns 404 for unknown trade", func(t *testing.T) {
		handler, _ := newTestTradeHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trades/missing/cancel", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.CancelTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("returns 409 for terminal trade", func(t *testing.T) {
		handler, reg := newTestTradeHandler(t)

		seedHistoryTrade(t, reg, &models.Trade{
			ID:          "trade-1",
			Fingerprint: "ethereum|polygon|ETH/USDC|1035",
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trades/trade-1/cancel", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "trade-1"})
		w := httptest.NewRecorder()

		handler.CancelTrade(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestTradeHandler_GetStrandedTrades(t *testing.T) {
	handler, reg := newTestTradeHandler(t)

	// Сделка без застрявшей позиции не попадает в выдачу
	seedHistoryTrade(t, reg, &models.Trade{
		ID:          "trade-1",
		Fingerprint: "ethereum|polygon|ETH/USDC|1035",
	})

	stranded := &models.Trade{
		ID:          "trade-2",
		Fingerprint: "ethereum|polygon|WBTC/USDT|1042",
		Stranded: &models.StrandedPosition{
			Chain:  "polygon",
			Token:  "WBTC",
			Amount: 0.05,
		},
	}
	seedHistoryTrade(t, reg, stranded)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/stranded", nil)
	w := httptest.NewRecorder()

	handler.GetStrandedTrades(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var trades []*models.Trade
	if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 stranded trade, got %d", len(trades))
	}
	if trades[0].ID != "trade-2" {
		t.Errorf("expected trade-2, got %s", trades[0].ID)
	}
}
