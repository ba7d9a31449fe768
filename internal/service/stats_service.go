package service

import (
	"chainarb/internal/models"
	"chainarb/internal/registry"
)

// StatsService агрегирует статистику: терминальные сделки из БД,
// текущее состояние из реестра в памяти
type StatsService struct {
	repo     StatsRepositoryInterface // nil = только память
	registry *registry.Registry
}

// NewStatsService создает сервис статистики
func NewStatsService(repo StatsRepositoryInterface, reg *registry.Registry) *StatsService {
	return &StatsService{repo: repo, registry: reg}
}

// GetStats возвращает агрегированную статистику
func (s *StatsService) GetStats() (*models.Stats, error) {
	var stats *models.Stats
	if s.repo != nil {
		var err error
		stats, err = s.repo.GetStats()
		if err != nil {
			return nil, err
		}
	} else {
		stats = s.fromMemory()
	}
	return stats, nil
}

// ActiveCount возвращает количество исполняющихся сделок
func (s *StatsService) ActiveCount() int {
	return s.registry.CountActive()
}

// fromMemory считает агрегаты по истории в памяти (режим без БД)
func (s *StatsService) fromMemory() *models.Stats {
	stats := &models.Stats{}
	recovered := make(map[string]bool)
	history := s.registry.ListHistory()

	for _, t := range history {
		if t.RecoveryOf != "" && t.State == models.TradeSettled {
			recovered[t.RecoveryOf] = true
		}
	}
	for _, t := range history {
		stats.TotalTrades++
		switch t.State {
		case models.TradeSettled:
			stats.SettledTrades++
			if t.RealizedProfit != nil && t.RecoveryOf == "" {
				stats.TotalProfit += *t.RealizedProfit
			}
		case models.TradeFailed:
			stats.FailedTrades++
		case models.TradeCancelled:
			stats.CancelledCount++
		}
		if t.Stranded != nil && !recovered[t.ID] {
			stats.StrandedOpen++
		}
	}
	return stats
}
