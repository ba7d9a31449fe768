package api

import (
	"net/http"
	"time"

	"chainarb/internal/api/handlers"
	"chainarb/internal/api/middleware"
	"chainarb/internal/service"
	"chainarb/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	TradeService        *service.TradeService
	SettingsService     *service.SettingsService
	WatchlistService    *service.WatchlistService
	BlacklistService    *service.BlacklistService
	NotificationService *service.NotificationService
	StatsService        *service.StatsService
	VenueService        *service.VenueService

	// ScanTrigger запускает внеочередной цикл сканирования
	ScanTrigger handlers.ScanTrigger

	// StalenessWindow определяет, какие возможности считаются текущими
	StalenessWindow time.Duration

	// Hub для WebSocket подключений, может быть nil в тестах
	Hub *websocket.Hub

	// APITokenHash - bcrypt хеш токена управления. Пустой хеш
	// отключает auth (допустимо только в режиме симуляции).
	APITokenHash string

	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /opportunities - возможности текущего цикла
//	├── /trades/
//	│   ├── GET / - активные сделки
//	│   ├── GET /history - завершенные сделки
//	│   ├── GET /stranded - застрявшие позиции
//	│   ├── GET /{id} - получить сделку
//	│   ├── POST /{id}/cancel - запросить отмену
//	│   └── POST /{id}/recover - восстановить застрявшую позицию
//	├── /settings/
//	│   ├── GET / - получить настройки
//	│   ├── PATCH / - обновить настройки
//	│   └── POST /reset - сбросить к значениям по умолчанию
//	├── /watchlist/
//	│   ├── GET / - список отслеживаемых пар
//	│   ├── POST / - добавить пару
//	│   ├── PATCH /{id} - изменить статус пары
//	│   └── DELETE /{id} - удалить пару
//	├── /blacklist/
//	│   ├── GET / - получить черный список
//	│   ├── POST / - добавить токен
//	│   └── DELETE /{token} - удалить токен
//	├── /notifications/
//	│   ├── GET / - журнал уведомлений
//	│   └── GET /trade/{id} - уведомления по сделке
//	├── /venues/
//	│   ├── GET / - список площадок (без ключей)
//	│   ├── POST / - добавить площадку
//	│   ├── PATCH /{name}/keys - обновить ключи
//	│   └── DELETE /{name} - удалить площадку
//	├── /stats - агрегированная статистика
//	├── /status - количество активных исполнений
//	└── /scan - POST, внеочередной цикл сканирования
//
// /ws - WebSocket для real-time обновлений
// /metrics - Prometheus метрики
// /health - проверка живости
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	// API v1 routes, все за auth
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(deps.APITokenHash))

	// Opportunity routes
	if deps.TradeService != nil {
		window := deps.StalenessWindow
		if window <= 0 {
			window = time.Second
		}
		opportunityHandler := handlers.NewOpportunityHandler(deps.TradeService, window)
		api.HandleFunc("/opportunities", opportunityHandler.GetOpportunities).Methods("GET")
	}

	// Trade routes
	if deps.TradeService != nil {
		tradeHandler := handlers.NewTradeHandler(deps.TradeService)
		api.HandleFunc("/trades", tradeHandler.GetActiveTrades).Methods("GET")
		api.HandleFunc("/trades/history", tradeHandler.GetTradeHistory).Methods("GET")
		api.HandleFunc("/trades/stranded", tradeHandler.GetStrandedTrades).Methods("GET")
		api.HandleFunc("/trades/{id}", tradeHandler.GetTrade).Methods("GET")
		api.HandleFunc("/trades/{id}/cancel", tradeHandler.CancelTrade).Methods("POST")
		api.HandleFunc("/trades/{id}/recover", tradeHandler.RecoverTrade).Methods("POST")
	}

	// Settings routes
	if deps.SettingsService != nil {
		settingsHandler := handlers.NewSettingsHandler(deps.SettingsService)
		api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
		api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PATCH")
		api.HandleFunc("/settings/reset", settingsHandler.ResetSettings).Methods("POST")
	}

	// Watchlist routes
	if deps.WatchlistService != nil {
		watchlistHandler := handlers.NewWatchlistHandler(deps.WatchlistService)
		api.HandleFunc("/watchlist", watchlistHandler.GetWatchlist).Methods("GET")
		api.HandleFunc("/watchlist", watchlistHandler.AddPair).Methods("POST")
		api.HandleFunc("/watchlist/{id}", watchlistHandler.SetPairStatus).Methods("PATCH")
		api.HandleFunc("/watchlist/{id}", watchlistHandler.RemovePair).Methods("DELETE")
	}

	// Blacklist routes
	if deps.BlacklistService != nil {
		blacklistHandler := handlers.NewBlacklistHandler(deps.BlacklistService)
		api.HandleFunc("/blacklist", blacklistHandler.GetBlacklist).Methods("GET")
		api.HandleFunc("/blacklist", blacklistHandler.AddToBlacklist).Methods("POST")
		api.HandleFunc("/blacklist/{token}", blacklistHandler.RemoveFromBlacklist).Methods("DELETE")
	}

	// Notification routes
	if deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications/trade/{id}", notificationHandler.GetTradeNotifications).Methods("GET")
		api.HandleFunc("/notifications/{id}/ack", notificationHandler.AckNotification).Methods("POST")
	}

	// Venue routes
	if deps.VenueService != nil {
		venueHandler := handlers.NewVenueHandler(deps.VenueService)
		api.HandleFunc("/venues", venueHandler.GetVenues).Methods("GET")
		api.HandleFunc("/venues", venueHandler.AddVenue).Methods("POST")
		api.HandleFunc("/venues/{name}/keys", venueHandler.UpdateVenueKeys).Methods("PATCH")
		api.HandleFunc("/venues/{name}", venueHandler.RemoveVenue).Methods("DELETE")
	}

	// Stats routes
	if deps.StatsService != nil {
		statsHandler := handlers.NewStatsHandler(deps.StatsService)
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
		api.HandleFunc("/status", statsHandler.GetStatus).Methods("GET")
	}

	// Scan trigger
	if deps.ScanTrigger != nil {
		scanHandler := handlers.NewScanHandler(deps.ScanTrigger)
		api.HandleFunc("/scan", scanHandler.TriggerScan).Methods("POST")
	}

	// WebSocket route
	if deps.Hub != nil {
		router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
