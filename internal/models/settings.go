package models

import (
	"errors"
	"time"
)

// Ошибки валидации настроек
var (
	ErrInvalidThreshold   = errors.New("profit threshold must be positive")
	ErrInvalidMaxCapital  = errors.New("max capital per trade must be positive")
	ErrInvalidSlippage    = errors.New("max slippage must be in [0, 100)")
	ErrInvalidConcurrency = errors.New("max concurrent executions must be positive")
	ErrInvalidAcceptance  = errors.New("advisory accept threshold must be in [0, 1]")
	ErrNoEnabledChains    = errors.New("at least one chain must be enabled")
)

// Settings представляет торговые настройки, управляемые через API.
// Изменения применяются на следующем цикле сканирования и никогда
// не затрагивают уже исполняющиеся сделки.
type Settings struct {
	ID                      int       `json:"id" db:"id"`
	MinProfitPct            float64   `json:"min_profit_pct" db:"min_profit_pct"`                         // порог эмиссии возможности, %
	MaxCapitalPerTrade      float64   `json:"max_capital_per_trade" db:"max_capital_per_trade"`           // USD
	TradeCapital            float64   `json:"trade_capital" db:"trade_capital"`                           // размер позиции по умолчанию, USD
	MaxSlippagePct          float64   `json:"max_slippage_pct" db:"max_slippage_pct"`                     // %
	MaxConcurrentExecutions int       `json:"max_concurrent_executions" db:"max_concurrent_executions"`   //
	AdvisoryAcceptThreshold float64   `json:"advisory_accept_threshold" db:"advisory_accept_threshold"`   // [0,1], строже порога обнаружения
	EnabledChains           []string  `json:"enabled_chains" db:"enabled_chains"`                         // JSON в БД
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// Validate проверяет диапазоны всех настроек
func (s *Settings) Validate() error {
	if s.MinProfitPct <= 0 {
		return ErrInvalidThreshold
	}
	if s.MaxCapitalPerTrade <= 0 || s.TradeCapital <= 0 {
		return ErrInvalidMaxCapital
	}
	if s.MaxSlippagePct < 0 || s.MaxSlippagePct >= 100 {
		return ErrInvalidSlippage
	}
	if s.MaxConcurrentExecutions <= 0 {
		return ErrInvalidConcurrency
	}
	if s.AdvisoryAcceptThreshold < 0 || s.AdvisoryAcceptThreshold > 1 {
		return ErrInvalidAcceptance
	}
	if len(s.EnabledChains) == 0 {
		return ErrNoEnabledChains
	}
	return nil
}

// ChainEnabled проверяет, включена ли сеть
func (s *Settings) ChainEnabled(chain string) bool {
	for _, c := range s.EnabledChains {
		if c == chain {
			return true
		}
	}
	return false
}

// Clone возвращает копию настроек (снимок на цикл сканирования)
func (s *Settings) Clone() *Settings {
	cp := *s
	cp.EnabledChains = make([]string, len(s.EnabledChains))
	copy(cp.EnabledChains, s.EnabledChains)
	return &cp
}
