package service

import (
	"sync"

	"chainarb/internal/models"
)

// SettingsService предоставляет бизнес-логику управления настройками.
//
// Держит текущие настройки в памяти: торговый цикл берёт снимок каждую
// итерацию, и поход в БД на каждый тик недопустим. Изменения пишутся
// в БД и применяются со следующего цикла сканирования.
type SettingsService struct {
	repo SettingsRepositoryInterface

	mu      sync.RWMutex
	current *models.Settings
}

// NewSettingsService создает сервис и загружает настройки из БД
func NewSettingsService(repo SettingsRepositoryInterface) (*SettingsService, error) {
	settings, err := repo.Get()
	if err != nil {
		return nil, err
	}
	return &SettingsService{repo: repo, current: settings}, nil
}

// GetSettings возвращает копию текущих настроек
func (s *SettingsService) GetSettings() *models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// UpdateSettingsRequest представляет запрос на обновление настроек.
// Все поля опциональны - обновляются только переданные.
type UpdateSettingsRequest struct {
	MinProfitPct            *float64  `json:"min_profit_pct,omitempty"`
	MaxCapitalPerTrade      *float64  `json:"max_capital_per_trade,omitempty"`
	TradeCapital            *float64  `json:"trade_capital,omitempty"`
	MaxSlippagePct          *float64  `json:"max_slippage_pct,omitempty"`
	MaxConcurrentExecutions *int      `json:"max_concurrent_executions,omitempty"`
	AdvisoryAcceptThreshold *float64  `json:"advisory_accept_threshold,omitempty"`
	EnabledChains           *[]string `json:"enabled_chains,omitempty"`
}

// UpdateSettings применяет частичное обновление. Валидация выполняется
// на итоговом состоянии: некорректная комбинация отклоняется целиком.
func (s *SettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.current.Clone()

	if req.MinProfitPct != nil {
		settings.MinProfitPct = *req.MinProfitPct
	}
	if req.MaxCapitalPerTrade != nil {
		settings.MaxCapitalPerTrade = *req.MaxCapitalPerTrade
	}
	if req.TradeCapital != nil {
		settings.TradeCapital = *req.TradeCapital
	}
	if req.MaxSlippagePct != nil {
		settings.MaxSlippagePct = *req.MaxSlippagePct
	}
	if req.MaxConcurrentExecutions != nil {
		settings.MaxConcurrentExecutions = *req.MaxConcurrentExecutions
	}
	if req.AdvisoryAcceptThreshold != nil {
		settings.AdvisoryAcceptThreshold = *req.AdvisoryAcceptThreshold
	}
	if req.EnabledChains != nil {
		settings.EnabledChains = append([]string(nil), (*req.EnabledChains)...)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(settings); err != nil {
		return nil, err
	}

	s.current = settings
	return settings.Clone(), nil
}

// ResetToDefaults сбрасывает настройки к значениям по умолчанию
func (s *SettingsService) ResetToDefaults() (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ResetToDefaults(); err != nil {
		return nil, err
	}
	settings, err := s.repo.Get()
	if err != nil {
		return nil, err
	}
	s.current = settings
	return settings.Clone(), nil
}
