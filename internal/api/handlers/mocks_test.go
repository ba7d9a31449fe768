package handlers

import (
	"errors"
	"testing"
	"time"

	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/repository"
	"chainarb/internal/service"
)

// ErrMockDatabase имитирует недоступность БД
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock BlacklistRepository ============

type MockBlacklistRepository struct {
	entries map[string]*models.BlacklistEntry
	nextID  int

	createErr error
	getErr    error
	deleteErr error
}

func NewMockBlacklistRepository() *MockBlacklistRepository {
	return &MockBlacklistRepository{
		entries: make(map[string]*models.BlacklistEntry),
		nextID:  1,
	}
}

func (m *MockBlacklistRepository) Create(entry *models.BlacklistEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.entries[entry.Token]; ok {
		return repository.ErrBlacklistEntryExists
	}
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.entries[entry.Token] = entry
	return nil
}

func (m *MockBlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *MockBlacklistRepository) Exists(token string) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	_, ok := m.entries[token]
	return ok, nil
}

func (m *MockBlacklistRepository) Delete(token string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.entries[token]; !ok {
		return repository.ErrBlacklistEntryNotFound
	}
	delete(m.entries, token)
	return nil
}

func (m *MockBlacklistRepository) Count() (int, error) {
	return len(m.entries), nil
}

// ============ Mock WatchlistRepository ============

type MockWatchlistRepository struct {
	pairs  map[int]*models.WatchPair
	nextID int

	createErr error
	getErr    error
	updateErr error
	deleteErr error
}

func NewMockWatchlistRepository() *MockWatchlistRepository {
	return &MockWatchlistRepository{
		pairs:  make(map[int]*models.WatchPair),
		nextID: 1,
	}
}

func (m *MockWatchlistRepository) Create(pair *models.WatchPair) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.pairs {
		if p.Base == pair.Base && p.Quote == pair.Quote {
			return repository.ErrPairExists
		}
	}
	pair.ID = m.nextID
	m.nextID++
	pair.CreatedAt = time.Now()
	m.pairs[pair.ID] = pair
	return nil
}

func (m *MockWatchlistRepository) GetAll() ([]*models.WatchPair, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]*models.WatchPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockWatchlistRepository) GetActive() ([]*models.WatchPair, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]*models.WatchPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		if p.Status == models.WatchPairActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockWatchlistRepository) GetByID(id int) (*models.WatchPair, error) {
	if pair, ok := m.pairs[id]; ok {
		return pair, nil
	}
	return nil, repository.ErrPairNotFound
}

func (m *MockWatchlistRepository) UpdateStatus(id int, status string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	pair, ok := m.pairs[id]
	if !ok {
		return repository.ErrPairNotFound
	}
	pair.Status = status
	return nil
}

func (m *MockWatchlistRepository) Delete(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.pairs[id]; !ok {
		return repository.ErrPairNotFound
	}
	delete(m.pairs, id)
	return nil
}

func (m *MockWatchlistRepository) Count() (int, error) {
	return len(m.pairs), nil
}

// ============ Mock SettingsRepository ============

type MockSettingsRepository struct {
	settings *models.Settings

	getErr    error
	updateErr error
}

func defaultMockSettings() *models.Settings {
	return &models.Settings{
		ID:                      1,
		MinProfitPct:            1.0,
		MaxCapitalPerTrade:      5000,
		TradeCapital:            1000,
		MaxSlippagePct:          0.5,
		MaxConcurrentExecutions: 3,
		AdvisoryAcceptThreshold: 0.7,
		EnabledChains:           []string{"ethereum", "polygon"},
	}
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{settings: defaultMockSettings()}
}

func (m *MockSettingsRepository) Get() (*models.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings.Clone(), nil
}

func (m *MockSettingsRepository) Update(settings *models.Settings) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = settings.Clone()
	return nil
}

func (m *MockSettingsRepository) ResetToDefaults() error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = defaultMockSettings()
	return nil
}

// ============ Test helpers ============

func newTestBlacklistHandler(t *testing.T) (*BlacklistHandler, *MockBlacklistRepository) {
	t.Helper()
	repo := NewMockBlacklistRepository()
	svc, err := service.NewBlacklistService(repo)
	if err != nil {
		t.Fatalf("failed to create blacklist service: %v", err)
	}
	return NewBlacklistHandler(svc), repo
}

func newTestWatchlistHandler(t *testing.T) (*WatchlistHandler, *MockWatchlistRepository) {
	t.Helper()
	repo := NewMockWatchlistRepository()
	svc, err := service.NewWatchlistService(repo)
	if err != nil {
		t.Fatalf("failed to create watchlist service: %v", err)
	}
	return NewWatchlistHandler(svc), repo
}

func newTestSettingsHandler(t *testing.T) (*SettingsHandler, *MockSettingsRepository) {
	t.Helper()
	repo := NewMockSettingsRepository()
	svc, err := service.NewSettingsService(repo)
	if err != nil {
		t.Fatalf("failed to create settings service: %v", err)
	}
	return NewSettingsHandler(svc), repo
}

// newTestTradeHandler строит handler поверх реестра без координатора
// и без БД: операции чтения и терминальные проверки этого не требуют
func newTestTradeHandler(t *testing.T) (*TradeHandler, *registry.Registry) {
	t.Helper()
	reg := registry.New(100)
	svc := service.NewTradeService(reg, nil, nil)
	return NewTradeHandler(svc), reg
}

// seedHistoryTrade помещает терминальную сделку в историю реестра
func seedHistoryTrade(t *testing.T, reg *registry.Registry, trade *models.Trade) {
	t.Helper()
	trade.State = models.TradePending
	if err := reg.BeginTrade(trade); err != nil {
		t.Fatalf("failed to begin trade: %v", err)
	}
	closed := time.Now()
	err := reg.UpdateTrade(trade.Fingerprint, func(tr *models.Trade) {
		tr.State = models.TradeSettled
		tr.ClosedAt = &closed
	})
	if err != nil {
		t.Fatalf("failed to update trade: %v", err)
	}
	if err := reg.MoveToHistory(trade.Fingerprint); err != nil {
		t.Fatalf("failed to move trade to history: %v", err)
	}
}
