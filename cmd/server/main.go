package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainarb/internal/advisory"
	"chainarb/internal/api"
	"chainarb/internal/bot"
	"chainarb/internal/bridge"
	"chainarb/internal/cache"
	"chainarb/internal/chain"
	"chainarb/internal/config"
	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/repository"
	"chainarb/internal/service"
	"chainarb/internal/venue"
	"chainarb/internal/websocket"
	"chainarb/pkg/utils"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Базовые цены пар для режима симуляции
var simBasePrices = map[string]float64{
	"ETH/USDC":   3000,
	"ETH/USDT":   3000,
	"WBTC/USDC":  65000,
	"WBTC/USDT":  65000,
	"BNB/USDT":   600,
	"AVAX/USDC":  35,
	"MATIC/USDC": 0.8,
	"LINK/USDC":  15,
}

// Запасные оценки газа на своп, USD. Используются в симуляции
// и при недоступном RPC.
var staticGasCosts = map[string]float64{
	"ethereum":  5.0,
	"bsc":       0.3,
	"polygon":   0.02,
	"avalanche": 0.15,
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()
	log := logger.Logger

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()), zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Кэш котировок (опционально)
	var quoteCache *cache.QuoteCache
	if cfg.Redis.Enabled {
		quoteCache = cache.New(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		log.Info("quote cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Репозитории
	defaults := models.Settings{
		MinProfitPct:            cfg.Trading.MinProfitPct,
		MaxCapitalPerTrade:      cfg.Trading.MaxCapitalPerTrade,
		TradeCapital:            cfg.Trading.TradeCapital,
		MaxSlippagePct:          cfg.Trading.MaxSlippagePct,
		MaxConcurrentExecutions: cfg.Trading.MaxConcurrentExecutions,
		AdvisoryAcceptThreshold: cfg.Trading.AdvisoryAcceptThreshold,
		EnabledChains:           cfg.Chains.Enabled,
	}
	tradeRepo := repository.NewTradeRepository(db)
	settingsRepo := repository.NewSettingsRepository(db, defaults)
	watchlistRepo := repository.NewWatchlistRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	venueRepo := repository.NewVenueRepository(db)

	// Сервисы. Кэширующие сервисы загружают состояние при старте.
	settingsService, err := service.NewSettingsService(settingsRepo)
	if err != nil {
		log.Fatal("failed to load settings", zap.Error(err))
	}
	watchlistService, err := service.NewWatchlistService(watchlistRepo)
	if err != nil {
		log.Fatal("failed to load watchlist", zap.Error(err))
	}
	blacklistService, err := service.NewBlacklistService(blacklistRepo)
	if err != nil {
		log.Fatal("failed to load blacklist", zap.Error(err))
	}
	venueService, err := service.NewVenueService(venueRepo, []byte(cfg.Security.EncryptionKey))
	if err != nil {
		log.Fatal("failed to init venue service", zap.Error(err))
	}
	notificationService := service.NewNotificationService(notificationRepo)

	// Оракул газа: EVM RPC с деградацией в статичные оценки
	var gasOracle chain.GasOracle = chain.NewStaticOracle(staticGasCosts)
	if len(cfg.Chains.RPCEndpoints) > 0 {
		evm := chain.NewEVMOracle(cfg.Chains.RPCEndpoints, cfg.Chains.NativeUSD,
			cfg.Chains.GasLimit, gasOracle, log)
		defer evm.Close()
		gasOracle = evm
	}

	// Площадки и мост
	var venues []venue.Venue
	var br bridge.Bridge
	if cfg.Trading.SimulationMode {
		venues = venue.BuildSimulated(cfg.Chains.Enabled, simBasePrices, gasOracle)
		br = bridge.NewSimulatedBridge(cfg.Bridge.FeePct, cfg.Bridge.SimLatency)
		log.Info("simulation mode: deterministic venues and bridge",
			zap.Int("venues", len(venues)))
	} else {
		apiKeys := make(map[string]string, len(cfg.Venues.Endpoints))
		for name := range cfg.Venues.Endpoints {
			key, _, err := venueService.DecryptedKeys(name)
			if err != nil {
				log.Warn("no stored keys for venue, connecting without auth",
					zap.String("venue", name))
				continue
			}
			apiKeys[name] = key
		}
		venues, err = venue.BuildREST(cfg.Venues.Endpoints, apiKeys, cfg.Chains.Enabled, gasOracle)
		if err != nil {
			log.Fatal("failed to build venues", zap.Error(err))
		}
		br = bridge.NewRESTBridge(bridge.RESTBridgeConfig{
			BaseURL:       cfg.Bridge.URL,
			APIKey:        cfg.Bridge.APIKey,
			DefaultFeePct: cfg.Bridge.FeePct,
		})

		// Потоки тиков греют кэш котировок. Неудачное подключение
		// не фатально: поток переподключается сам. Без Redis прогревать
		// нечего, потоки не запускаются.
		if quoteCache != nil {
			for name, wsURL := range cfg.Venues.WSEndpoints {
				chainName, err := venue.ChainOf(name)
				if err != nil {
					log.Warn("unknown venue for quote stream", zap.String("venue", name))
					continue
				}
				stream := venue.NewQuoteStream(name, chainName, wsURL, venue.DefaultStreamConfig(),
					func(q *venue.Quote) {
						ctx, cancel := context.WithTimeout(context.Background(), time.Second)
						defer cancel()
						if err := quoteCache.Put(ctx, q); err != nil {
							log.Debug("quote cache put failed", zap.Error(err))
						}
					}, log)
				stream.Start()
				defer stream.Close()
			}
		}
	}

	// Внешний советник риска. Без URL оценка всегда нейтральная:
	// возможность исполняется только если оператор снизил порог.
	var advisoryClient advisory.Client
	if cfg.Advisory.URL != "" {
		advisoryClient = advisory.NewRESTClient(cfg.Advisory.URL, cfg.Advisory.APIKey, cfg.Advisory.Timeout)
	} else {
		advisoryClient = advisory.NewStaticClient(cfg.Advisory.NeutralScore, "advisory service not configured")
	}

	// Реестр, WebSocket hub, координатор исполнения
	reg := registry.New(cfg.Trading.HistoryLimit)

	hub := websocket.NewHub(log)
	go hub.Run()

	statsService := service.NewStatsService(statsRepo, reg)

	coordinator := bot.NewCoordinator(reg, venues, br, bot.CoordinatorConfig{
		LegTimeout:      cfg.Trading.LegTimeout,
		BridgeTimeout:   cfg.Trading.BridgeTimeout,
		StalenessWindow: cfg.Trading.StalenessWindow,
	}, log)
	coordinator.SetArchiver(tradeRepo)
	coordinator.SetOnUpdate(func(trade *models.Trade) {
		hub.BroadcastTradeUpdate(trade)
		if trade.IsTerminal() {
			if stats, err := statsService.GetStats(); err == nil {
				hub.BroadcastStatsUpdate(stats)
			}
		}
	})

	// Торговый цикл
	scanner := bot.NewScanner(venues, br, quoteCache, blacklistService, cfg.Trading.QuoteTimeout, log)
	risk := bot.NewRiskEvaluator(advisoryClient, cfg.Advisory.NeutralScore, log)
	scanSource := service.NewScanSource(settingsService, watchlistService)
	engine := bot.NewEngine(scanner, risk, coordinator, reg, scanSource,
		cfg.Trading.ScanInterval, cfg.Trading.StalenessWindow, log)
	engine.SetOnOpportunity(hub.BroadcastOpportunity)

	tradeService := service.NewTradeService(reg, coordinator, tradeRepo)

	// Насос уведомлений: журнал в БД и рассылка подписчикам
	go func() {
		for n := range engine.Notifications() {
			if err := notificationService.Record(n); err != nil {
				log.Warn("failed to persist notification", zap.Error(err))
			}
			hub.BroadcastNotification(n)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()

	// HTTP API
	deps := &api.Dependencies{
		TradeService:        tradeService,
		SettingsService:     settingsService,
		WatchlistService:    watchlistService,
		BlacklistService:    blacklistService,
		NotificationService: notificationService,
		StatsService:        statsService,
		VenueService:        venueService,
		ScanTrigger:         engine,
		StalenessWindow:     cfg.Trading.StalenessWindow,
		Hub:                 hub,
		APITokenHash:        cfg.Security.APITokenHash,
		Logger:              log,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", server.Addr))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown: сначала торговый цикл (отправленные ноги
	// довыполняются), затем HTTP и WebSocket
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	engine.Stop()
	select {
	case <-engineDone:
	case <-time.After(30 * time.Second):
		log.Warn("trading engine did not stop in time")
	}

	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
