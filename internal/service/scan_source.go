package service

import (
	"chainarb/internal/models"
)

// ScanSource собирает снимок входных данных торгового цикла:
// настройки из SettingsService, активные пары из WatchlistService.
// Реализует контракт источника для движка.
type ScanSource struct {
	settings  *SettingsService
	watchlist *WatchlistService
}

// NewScanSource создает источник снимков для торгового цикла
func NewScanSource(settings *SettingsService, watchlist *WatchlistService) *ScanSource {
	return &ScanSource{settings: settings, watchlist: watchlist}
}

// Snapshot возвращает согласованный снимок на один цикл сканирования
func (s *ScanSource) Snapshot() (*models.Settings, []models.TokenPair) {
	return s.settings.GetSettings(), s.watchlist.ActivePairs()
}
