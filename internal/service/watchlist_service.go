package service

import (
	"errors"
	"sync"

	"chainarb/internal/models"
	"chainarb/pkg/utils"
)

// Ошибки сервиса watchlist
var (
	ErrInvalidPairStatus = errors.New("status must be active or paused")
)

// WatchlistService предоставляет бизнес-логику управления списком
// отслеживаемых пар. Активные пары кэшируются в памяти для торгового
// цикла, кэш обновляется при каждой мутации.
type WatchlistService struct {
	repo WatchlistRepositoryInterface

	mu     sync.RWMutex
	active []models.TokenPair
}

// NewWatchlistService создает сервис и загружает активные пары
func NewWatchlistService(repo WatchlistRepositoryInterface) (*WatchlistService, error) {
	s := &WatchlistService{repo: repo}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// ActivePairs возвращает снимок активных пар для цикла сканирования
func (s *WatchlistService) ActivePairs() []models.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TokenPair, len(s.active))
	copy(out, s.active)
	return out
}

// GetAll возвращает все пары watchlist
func (s *WatchlistService) GetAll() ([]*models.WatchPair, error) {
	return s.repo.GetAll()
}

// Add добавляет пару в watchlist. Символы валидируются и нормализуются.
func (s *WatchlistService) Add(base, quote string) (*models.WatchPair, error) {
	var v utils.ValidationErrors
	v.Add(utils.ValidateTokenSymbol(base))
	v.Add(utils.ValidateTokenSymbol(quote))
	if err := v.Err(); err != nil {
		return nil, err
	}

	pair := &models.WatchPair{
		Base:   utils.NormalizeTokenSymbol(base),
		Quote:  utils.NormalizeTokenSymbol(quote),
		Status: models.WatchPairActive,
	}
	if err := s.repo.Create(pair); err != nil {
		return nil, err
	}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return pair, nil
}

// SetStatus переключает пару между active и paused.
// Пауза исключает пару со следующего цикла сканирования.
func (s *WatchlistService) SetStatus(id int, status string) error {
	if status != models.WatchPairActive && status != models.WatchPairPaused {
		return ErrInvalidPairStatus
	}
	if err := s.repo.UpdateStatus(id, status); err != nil {
		return err
	}
	return s.refresh()
}

// Remove удаляет пару из watchlist
func (s *WatchlistService) Remove(id int) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	return s.refresh()
}

// refresh перечитывает кэш активных пар из БД
func (s *WatchlistService) refresh() error {
	pairs, err := s.repo.GetActive()
	if err != nil {
		return err
	}
	active := make([]models.TokenPair, 0, len(pairs))
	for _, p := range pairs {
		active = append(active, p.Pair())
	}

	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
	return nil
}
