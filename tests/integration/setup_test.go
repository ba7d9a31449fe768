//go:build integration

// Package integration contains integration tests for the cross-chain
// arbitrage server.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: schema, repositories, concurrent access
//
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"chainarb/internal/api"
	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/repository"
	"chainarb/internal/service"
	"chainarb/internal/websocket"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Ключ AES-256 для шифрования ключей площадок в тестах
var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

// TestConfig contains database configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *websocket.Hub
	Registry *registry.Registry
	Repos    *TestRepositories
	Services *TestServices
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Trade        *repository.TradeRepository
	Settings     *repository.SettingsRepository
	Watchlist    *repository.WatchlistRepository
	Blacklist    *repository.BlacklistRepository
	Notification *repository.NotificationRepository
	Stats        *repository.StatsRepository
	Venue        *repository.VenueRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Trade        *service.TradeService
	Settings     *service.SettingsService
	Watchlist    *service.WatchlistService
	Blacklist    *service.BlacklistService
	Notification *service.NotificationService
	Stats        *service.StatsService
	Venue        *service.VenueService
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "chainarb_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components.
// Торговый цикл не запускается: API и репозитории тестируются напрямую.
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}
	cleanupTestTables(db)

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	reg := registry.New(100)

	repos := &TestRepositories{
		Trade:        repository.NewTradeRepository(db),
		Settings:     repository.NewSettingsRepository(db, testDefaultSettings()),
		Watchlist:    repository.NewWatchlistRepository(db),
		Blacklist:    repository.NewBlacklistRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Stats:        repository.NewStatsRepository(db),
		Venue:        repository.NewVenueRepository(db),
	}

	settingsSvc, err := service.NewSettingsService(repos.Settings)
	if err != nil {
		t.Fatalf("failed to create settings service: %v", err)
	}
	watchlistSvc, err := service.NewWatchlistService(repos.Watchlist)
	if err != nil {
		t.Fatalf("failed to create watchlist service: %v", err)
	}
	blacklistSvc, err := service.NewBlacklistService(repos.Blacklist)
	if err != nil {
		t.Fatalf("failed to create blacklist service: %v", err)
	}
	venueSvc, err := service.NewVenueService(repos.Venue, testEncryptionKey)
	if err != nil {
		t.Fatalf("failed to create venue service: %v", err)
	}

	services := &TestServices{
		Trade:        service.NewTradeService(reg, nil, repos.Trade),
		Settings:     settingsSvc,
		Watchlist:    watchlistSvc,
		Blacklist:    blacklistSvc,
		Notification: service.NewNotificationService(repos.Notification),
		Stats:        service.NewStatsService(repos.Stats, reg),
		Venue:        venueSvc,
	}

	deps := &api.Dependencies{
		TradeService:        services.Trade,
		SettingsService:     services.Settings,
		WatchlistService:    services.Watchlist,
		BlacklistService:    services.Blacklist,
		NotificationService: services.Notification,
		StatsService:        services.Stats,
		VenueService:        services.Venue,
		StalenessWindow:     time.Second,
		Hub:                 hub,
		Logger:              zap.NewNop(),
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Registry: reg,
		Repos:    repos,
		Services: services,
		Cleanup:  cleanup,
	}
}

// testDefaultSettings returns settings seeded on first access
func testDefaultSettings() models.Settings {
	return models.Settings{
		MinProfitPct:            1.0,
		MaxCapitalPerTrade:      5000,
		TradeCapital:            1000,
		MaxSlippagePct:          0.5,
		MaxConcurrentExecutions: 3,
		AdvisoryAcceptThreshold: 0.7,
		EnabledChains:           []string{"ethereum", "polygon"},
	}
}

// initTestTables creates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id VARCHAR(64) PRIMARY KEY,
			fingerprint VARCHAR(128) NOT NULL,
			state VARCHAR(20) NOT NULL,
			opportunity JSONB,
			legs JSONB,
			realized_profit DECIMAL(20, 8),
			stranded JSONB,
			failure_reason TEXT,
			recovery_of VARCHAR(64),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY DEFAULT 1,
			min_profit_pct DECIMAL(10, 4) NOT NULL,
			max_capital_per_trade DECIMAL(20, 2) NOT NULL,
			trade_capital DECIMAL(20, 2) NOT NULL,
			max_slippage_pct DECIMAL(10, 4) NOT NULL,
			max_concurrent_executions INT NOT NULL,
			advisory_accept_threshold DECIMAL(5, 4) NOT NULL,
			enabled_chains JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			id SERIAL PRIMARY KEY,
			base VARCHAR(15) NOT NULL,
			quote VARCHAR(15) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE (base, quote)
		)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			id SERIAL PRIMARY KEY,
			token VARCHAR(15) UNIQUE NOT NULL,
			reason TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			trade_id VARCHAR(64),
			message TEXT NOT NULL,
			meta JSONB DEFAULT '{}',
			read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS venue_accounts (
			id SERIAL PRIMARY KEY,
			venue VARCHAR(50) UNIQUE NOT NULL,
			chain VARCHAR(20) NOT NULL,
			api_key TEXT NOT NULL DEFAULT '',
			secret_key TEXT NOT NULL DEFAULT '',
			connected BOOLEAN DEFAULT false,
			last_error TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"trades",
		"notifications",
		"blacklist",
		"watchlist",
		"venue_accounts",
		"settings",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// TruncateTable truncates a specific table for testing
func TruncateTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tableName))
	return err
}
