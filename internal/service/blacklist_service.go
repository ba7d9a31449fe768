package service

import (
	"sync"

	"chainarb/internal/models"
	"chainarb/pkg/utils"
)

// BlacklistService предоставляет бизнес-логику черного списка токенов.
// Держит множество токенов в памяти: сканер проверяет каждую пару
// каждый цикл, и поход в БД на проверку недопустим.
type BlacklistService struct {
	repo BlacklistRepositoryInterface

	mu     sync.RWMutex
	tokens map[string]bool
}

// NewBlacklistService создает сервис и загружает черный список
func NewBlacklistService(repo BlacklistRepositoryInterface) (*BlacklistService, error) {
	s := &BlacklistService{repo: repo}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// IsBlacklisted проверяет токен по кэшу в памяти.
// Реализует контракт сканера.
func (s *BlacklistService) IsBlacklisted(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[utils.NormalizeTokenSymbol(token)]
}

// GetAll возвращает весь черный список
func (s *BlacklistService) GetAll() ([]*models.BlacklistEntry, error) {
	return s.repo.GetAll()
}

// Add добавляет токен в черный список
func (s *BlacklistService) Add(token, reason string) (*models.BlacklistEntry, error) {
	if err := utils.ValidateTokenSymbol(token); err != nil {
		return nil, err
	}

	entry := &models.BlacklistEntry{
		Token:  utils.NormalizeTokenSymbol(token),
		Reason: reason,
	}
	if err := s.repo.Create(entry); err != nil {
		return nil, err
	}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove удаляет токен из черного списка
func (s *BlacklistService) Remove(token string) error {
	if err := s.repo.Delete(token); err != nil {
		return err
	}
	return s.refresh()
}

// refresh перечитывает кэш из БД
func (s *BlacklistService) refresh() error {
	entries, err := s.repo.GetAll()
	if err != nil {
		return err
	}
	tokens := make(map[string]bool, len(entries))
	for _, e := range entries {
		tokens[utils.NormalizeTokenSymbol(e.Token)] = true
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}
