package service

import (
	"time"

	"chainarb/internal/models"
	"chainarb/internal/repository"
)

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	trades     map[string]*models.Trade
	order      []string // порядок архивации, новые в конце
	archiveErr error
	getErr     error
	deleteErr  error
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{trades: make(map[string]*models.Trade)}
}

func (m *MockTradeRepository) Archive(trade *models.Trade) error {
	if m.archiveErr != nil {
		return m.archiveErr
	}
	if _, exists := m.trades[trade.ID]; !exists {
		m.order = append(m.order, trade.ID)
	}
	m.trades[trade.ID] = trade
	return nil
}

func (m *MockTradeRepository) GetByID(id string) (*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if trade, exists := m.trades[id]; exists {
		return trade, nil
	}
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepository) GetRecent(limit int) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Trade
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		result = append(result, m.trades[m.order[i]])
	}
	return result, nil
}

func (m *MockTradeRepository) GetByState(state string, limit int) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Trade
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if t := m.trades[m.order[i]]; t.State == state {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeRepository) GetStranded() ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	recovered := make(map[string]bool)
	for _, t := range m.trades {
		if t.RecoveryOf != "" && t.State == models.TradeSettled {
			recovered[t.RecoveryOf] = true
		}
	}
	var result []*models.Trade
	for _, id := range m.order {
		t := m.trades[id]
		if t.Stranded != nil && !recovered[t.ID] {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var deleted int64
	var kept []string
	for _, id := range m.order {
		t := m.trades[id]
		if t.ClosedAt != nil && t.ClosedAt.Before(timestamp) {
			delete(m.trades, id)
			deleted++
		} else {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return deleted, nil
}

func (m *MockTradeRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.trades), nil
}

// ============ Mock SettingsRepository ============

type MockSettingsRepository struct {
	settings  *models.Settings
	getErr    error
	updateErr error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{settings: defaultMockSettings()}
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
		UpdatedAt:               time.Now(),
	}
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
	m.settings.UpdatedAt = time.Now()
	return nil
}

func (m *MockSettingsRepository) ResetToDefaults() error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = defaultMockSettings()
	return nil
}

// ============ Mock WatchlistRepository ============

type MockWatchlistRepository struct {
	pairs     map[int]*models.WatchPair
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	nextID    int
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
	pair.UpdatedAt = time.Now()
	m.pairs[pair.ID] = pair
	return nil
}

func (m *MockWatchlistRepository) GetAll() ([]*models.WatchPair, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.WatchPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		result = append(result, p)
	}
	return result, nil
}

func (m *MockWatchlistRepository) GetActive() ([]*models.WatchPair, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.WatchPair
	for _, p := range m.pairs {
		if p.Status == models.WatchPairActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockWatchlistRepository) GetByID(id int) (*models.WatchPair, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if pair, exists := m.pairs[id]; exists {
		return pair, nil
	}
	return nil, repository.ErrPairNotFound
}

func (m *MockWatchlistRepository) UpdateStatus(id int, status string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if pair, exists := m.pairs[id]; exists {
		pair.Status = status
		pair.UpdatedAt = time.Now()
		return nil
	}
	return repository.ErrPairNotFound
}

func (m *MockWatchlistRepository) Delete(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.pairs[id]; !exists {
		return repository.ErrPairNotFound
	}
	delete(m.pairs, id)
	return nil
}

func (m *MockWatchlistRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.pairs), nil
}

// ============ Mock BlacklistRepository ============

type MockBlacklistRepository struct {
	entries   map[string]*models.BlacklistEntry
	createErr error
	getErr    error
	deleteErr error
	nextID    int
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
	if _, exists := m.entries[entry.Token]; exists {
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
	result := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *MockBlacklistRepository) Exists(token string) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	_, exists := m.entries[token]
	return exists, nil
}

func (m *MockBlacklistRepository) Delete(token string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.entries[token]; !exists {
		return repository.ErrBlacklistEntryNotFound
	}
	delete(m.entries, token)
	return nil
}

func (m *MockBlacklistRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.entries), nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	createErr     error
	getErr        error
	deleteErr     error
	nextID        int
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make([]*models.Notification, 0),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(notif *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	m.nextID++
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *MockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	start := len(m.notifications) - limit
	if start < 0 {
		start = 0
	}
	return m.notifications[start:], nil
}

func (m *MockNotificationRepository) GetByType(notifType string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.Type == notifType {
			result = append(result, n)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByTradeID(tradeID string) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.TradeID == tradeID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(id int) error {
	for _, n := range m.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (m *MockNotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var kept []*models.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.After(timestamp) {
			kept = append(kept, n)
		} else {
			deleted++
		}
	}
	m.notifications = kept
	return deleted, nil
}

// ============ Mock VenueRepository ============

type MockVenueRepository struct {
	accounts  map[string]*models.VenueAccount
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	nextID    int
}

func NewMockVenueRepository() *MockVenueRepository {
	return &MockVenueRepository{
		accounts: make(map[string]*models.VenueAccount),
		nextID:   1,
	}
}

func (m *MockVenueRepository) Create(account *models.VenueAccount) error {
	if m.createErr != nil {
		return m.createErr
	}
	account.ID = m.nextID
	m.nextID++
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	m.accounts[account.Venue] = account
	return nil
}

func (m *MockVenueRepository) GetAll() ([]*models.VenueAccount, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.VenueAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	return result, nil
}

func (m *MockVenueRepository) GetByVenue(venueName string) (*models.VenueAccount, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if account, exists := m.accounts[venueName]; exists {
		return account, nil
	}
	return nil, repository.ErrVenueAccountNotFound
}

func (m *MockVenueRepository) UpdateKeys(venueName, apiKey, secretKey string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if account, exists := m.accounts[venueName]; exists {
		account.APIKey = apiKey
		account.SecretKey = secretKey
		account.UpdatedAt = time.Now()
		return nil
	}
	return repository.ErrVenueAccountNotFound
}

func (m *MockVenueRepository) SetConnected(venueName string, connected bool, lastError string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if account, exists := m.accounts[venueName]; exists {
		account.Connected = connected
		account.LastError = lastError
		return nil
	}
	return repository.ErrVenueAccountNotFound
}

func (m *MockVenueRepository) Delete(venueName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.accounts[venueName]; !exists {
		return repository.ErrVenueAccountNotFound
	}
	delete(m.accounts, venueName)
	return nil
}
