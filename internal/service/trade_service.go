package service

import (
	"errors"
	"time"

	"chainarb/internal/bot"
	"chainarb/internal/models"
	"chainarb/internal/registry"
)

// Ошибки сервиса сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeService предоставляет read-операции над сделками и управляющие
// операции (отмена, восстановление), делегируемые координатору.
// Активные сделки живут в реестре, терминальные - в истории и БД.
type TradeService struct {
	registry    *registry.Registry
	coordinator *bot.Coordinator
	tradeRepo   TradeRepositoryInterface // nil = без персистентности
}

// NewTradeService создает сервис сделок
func NewTradeService(reg *registry.Registry, coordinator *bot.Coordinator, tradeRepo TradeRepositoryInterface) *TradeService {
	return &TradeService{
		registry:    reg,
		coordinator: coordinator,
		tradeRepo:   tradeRepo,
	}
}

// ListActive возвращает нетерминальные сделки
func (s *TradeService) ListActive() []*models.Trade {
	return s.registry.ListActive()
}

// ListOpportunities возвращает неустаревшие возможности текущего цикла
func (s *TradeService) ListOpportunities(window time.Duration) []*models.Opportunity {
	return s.registry.ListOpportunities(time.Now(), window)
}

// ListHistory возвращает терминальные сделки, новые первыми.
// Память покрывает последние сделки, хвост добирается из БД.
func (s *TradeService) ListHistory(limit int) ([]*models.Trade, error) {
	history := s.registry.ListHistory()
	if limit > 0 && len(history) > limit {
		return history[:limit], nil
	}
	if s.tradeRepo == nil || len(history) >= limit {
		return history, nil
	}

	persisted, err := s.tradeRepo.GetRecent(limit)
	if err != nil {
		// БД недоступна - отдаём что есть в памяти
		return history, nil
	}

	seen := make(map[string]bool, len(history))
	for _, t := range history {
		seen[t.ID] = true
	}
	for _, t := range persisted {
		if !seen[t.ID] {
			history = append(history, t)
		}
		if limit > 0 && len(history) >= limit {
			break
		}
	}
	return history, nil
}

// Get возвращает сделку по ID: активные, история в памяти, затем БД
func (s *TradeService) Get(id string) (*models.Trade, error) {
	if trade, err := s.registry.GetTrade(id); err == nil {
		return trade, nil
	}
	if s.tradeRepo != nil {
		if trade, err := s.tradeRepo.GetByID(id); err == nil {
			return trade, nil
		}
	}
	return nil, ErrTradeNotFound
}

// Cancel запрашивает отмену активной сделки. Запрос применяется
// в ближайшей безопасной точке между ногами.
func (s *TradeService) Cancel(id string) error {
	trade, err := s.registry.GetTrade(id)
	if err != nil {
		return ErrTradeNotFound
	}
	if trade.IsTerminal() {
		return bot.ErrNotCancellable
	}
	return s.coordinator.Cancel(trade.Fingerprint)
}

// Recover запускает восстановление застрявшей позиции сделки.
// Синхронная операция: возвращает терминальную сделку восстановления.
func (s *TradeService) Recover(id string) (*models.Trade, error) {
	return s.coordinator.RecoverStranded(id)
}

// ListStranded возвращает сделки с незакрытой застрявшей позицией
func (s *TradeService) ListStranded() ([]*models.Trade, error) {
	if s.tradeRepo != nil {
		return s.tradeRepo.GetStranded()
	}
	// Без БД - ищем по истории в памяти
	var out []*models.Trade
	recovered := make(map[string]bool)
	history := s.registry.ListHistory()
	for _, t := range history {
		if t.RecoveryOf != "" && t.State == models.TradeSettled {
			recovered[t.RecoveryOf] = true
		}
	}
	for _, t := range history {
		if t.Stranded != nil && !recovered[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

// PurgeOlderThan удаляет из БД сделки старше указанного возраста
func (s *TradeService) PurgeOlderThan(age time.Duration) (int64, error) {
	if s.tradeRepo == nil {
		return 0, nil
	}
	return s.tradeRepo.DeleteOlderThan(time.Now().Add(-age))
}
