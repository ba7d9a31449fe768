package service

import (
	"time"

	"chainarb/internal/models"
	"chainarb/internal/repository"
)

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	Archive(trade *models.Trade) error
	GetByID(id string) (*models.Trade, error)
	GetRecent(limit int) ([]*models.Trade, error)
	GetByState(state string, limit int) ([]*models.Trade, error)
	GetStranded() ([]*models.Trade, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
	Count() (int, error)
}

// SettingsRepositoryInterface определяет интерфейс репозитория настроек
type SettingsRepositoryInterface interface {
	Get() (*models.Settings, error)
	Update(settings *models.Settings) error
	ResetToDefaults() error
}

// WatchlistRepositoryInterface определяет интерфейс репозитория watchlist
type WatchlistRepositoryInterface interface {
	Create(pair *models.WatchPair) error
	GetAll() ([]*models.WatchPair, error)
	GetActive() ([]*models.WatchPair, error)
	GetByID(id int) (*models.WatchPair, error)
	UpdateStatus(id int, status string) error
	Delete(id int) error
	Count() (int, error)
}

// BlacklistRepositoryInterface определяет интерфейс репозитория черного списка
type BlacklistRepositoryInterface interface {
	Create(entry *models.BlacklistEntry) error
	GetAll() ([]*models.BlacklistEntry, error)
	Exists(token string) (bool, error)
	Delete(token string) error
	Count() (int, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByType(notifType string, limit int) ([]*models.Notification, error)
	GetByTradeID(tradeID string) ([]*models.Notification, error)
	MarkRead(id int) error
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// StatsRepositoryInterface определяет интерфейс репозитория статистики
type StatsRepositoryInterface interface {
	GetStats() (*models.Stats, error)
}

// VenueRepositoryInterface определяет интерфейс репозитория площадок
type VenueRepositoryInterface interface {
	Create(account *models.VenueAccount) error
	GetAll() ([]*models.VenueAccount, error)
	GetByVenue(venueName string) (*models.VenueAccount, error)
	UpdateKeys(venueName, apiKey, secretKey string) error
	SetConnected(venueName string, connected bool, lastError string) error
	Delete(venueName string) error
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ SettingsRepositoryInterface = (*repository.SettingsRepository)(nil)
var _ WatchlistRepositoryInterface = (*repository.WatchlistRepository)(nil)
var _ BlacklistRepositoryInterface = (*repository.BlacklistRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
var _ StatsRepositoryInterface = (*repository.StatsRepository)(nil)
var _ VenueRepositoryInterface = (*repository.VenueRepository)(nil)
