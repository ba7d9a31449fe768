package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Security SecurityConfig
	Trading  TradingConfig
	Chains   ChainsConfig
	Venues   VenuesConfig
	Bridge   BridgeConfig
	Advisory AdvisoryConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig - настройки кэша последних котировок (опционально)
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	APITokenHash  string // bcrypt-хеш токена управляющего API
	EncryptionKey string // ключ AES-256 для шифрования ключей площадок
}

// TradingConfig - параметры сканирования и исполнения.
// Значения ниже — стартовые; рабочие настройки правятся через API
// и применяются со следующего цикла сканирования.
type TradingConfig struct {
	ScanInterval            time.Duration // период цикла сканирования
	QuoteTimeout            time.Duration // таймаут одного запроса котировки
	StalenessWindow         time.Duration // ценовые данные старше окна не исполняются
	MinProfitPct            float64       // порог эмиссии возможности, %
	MaxCapitalPerTrade      float64       // USD
	TradeCapital            float64       // размер позиции по умолчанию, USD
	MaxSlippagePct          float64       // %
	MaxConcurrentExecutions int           // счётный лимит одновременных исполнений
	AdvisoryAcceptThreshold float64       // [0,1]
	LegTimeout              time.Duration // таймаут сетевой отправки одной ноги
	BridgeTimeout           time.Duration // мост заметно медленнее свопа
	MaxRetries              int           // транспортные повторы внутри ноги
	RetryBackoff            time.Duration
	SimulationMode          bool // детерминированные площадки вместо REST
	HistoryLimit            int  // размер кольца истории в памяти
}

// ChainsConfig - включённые сети и их RPC/шлюзы
type ChainsConfig struct {
	Enabled      []string          // ethereum,bsc,polygon,avalanche
	RPCEndpoints map[string]string // chain -> EVM RPC URL (пусто = статичная оценка газа)
	NativeUSD    map[string]float64
	GasLimit     uint64 // оценочный лимит газа на своп
}

// VenuesConfig - REST шлюзы площадок (вне режима симуляции)
type VenuesConfig struct {
	Endpoints map[string]string // venue -> URL шлюза (VENUE_URL_UNISWAP и т.д.)

	// WSEndpoints - WebSocket потоки тиков для прогрева кэша котировок
	// (VENUE_WS_UNISWAP и т.д.). Опциональны: сканер опирается на
	// синхронные котировки.
	WSEndpoints map[string]string
}

// BridgeConfig - шлюз кросс-чейн переноса
type BridgeConfig struct {
	URL        string
	APIKey     string
	FeePct     float64       // комиссия по умолчанию, %
	SimLatency time.Duration // задержка симулируемого моста
}

// AdvisoryConfig - внешний сервис оценки риска
type AdvisoryConfig struct {
	URL          string
	APIKey       string
	Timeout      time.Duration
	NeutralScore float64 // подставляется при недоступности сервиса
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает .env (если есть) и конфигурацию из переменных окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "chainarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			APITokenHash:  getEnv("API_TOKEN_HASH", ""),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Trading: TradingConfig{
			ScanInterval:            getEnvAsDuration("SCAN_INTERVAL", 1*time.Second),
			QuoteTimeout:            getEnvAsDuration("QUOTE_TIMEOUT", 800*time.Millisecond),
			StalenessWindow:         getEnvAsDuration("STALENESS_WINDOW", 1*time.Second),
			MinProfitPct:            getEnvAsFloat("MIN_PROFIT_PCT", 1.0),
			MaxCapitalPerTrade:      getEnvAsFloat("MAX_CAPITAL_PER_TRADE", 5000),
			TradeCapital:            getEnvAsFloat("TRADE_CAPITAL", 1000),
			MaxSlippagePct:          getEnvAsFloat("MAX_SLIPPAGE_PCT", 0.5),
			MaxConcurrentExecutions: getEnvAsInt("MAX_CONCURRENT_EXECUTIONS", 3),
			AdvisoryAcceptThreshold: getEnvAsFloat("ADVISORY_ACCEPT_THRESHOLD", 0.7),
			LegTimeout:              getEnvAsDuration("LEG_TIMEOUT", 15*time.Second),
			BridgeTimeout:           getEnvAsDuration("BRIDGE_TIMEOUT", 2*time.Minute),
			MaxRetries:              getEnvAsInt("MAX_RETRIES", 3),
			RetryBackoff:            getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
			SimulationMode:          getEnvAsBool("SIMULATION_MODE", true),
			HistoryLimit:            getEnvAsInt("HISTORY_LIMIT", 1000),
		},
		Chains: ChainsConfig{
			Enabled:      getEnvAsSlice("ENABLED_CHAINS", []string{"ethereum", "bsc", "polygon", "avalanche"}),
			RPCEndpoints: getEnvAsMap("CHAIN_RPC"), // CHAIN_RPC_ETHEREUM и т.д.
			NativeUSD: map[string]float64{
				"ethereum":  getEnvAsFloat("NATIVE_USD_ETHEREUM", 3000),
				"bsc":       getEnvAsFloat("NATIVE_USD_BSC", 600),
				"polygon":   getEnvAsFloat("NATIVE_USD_POLYGON", 0.8),
				"avalanche": getEnvAsFloat("NATIVE_USD_AVALANCHE", 35),
			},
			GasLimit: uint64(getEnvAsInt("SWAP_GAS_LIMIT", 180000)),
		},
		Venues: VenuesConfig{
			Endpoints:   getEnvAsMap("VENUE_URL"),
			WSEndpoints: getEnvAsMap("VENUE_WS"),
		},
		Bridge: BridgeConfig{
			URL:        getEnv("BRIDGE_URL", ""),
			APIKey:     getEnv("BRIDGE_API_KEY", ""),
			FeePct:     getEnvAsFloat("BRIDGE_FEE_PCT", 0.5),
			SimLatency: getEnvAsDuration("BRIDGE_SIM_LATENCY", 200*time.Millisecond),
		},
		Advisory: AdvisoryConfig{
			URL:          getEnv("ADVISORY_URL", ""),
			APIKey:       getEnv("ADVISORY_API_KEY", ""),
			Timeout:      getEnvAsDuration("ADVISORY_TIMEOUT", 3*time.Second),
			NeutralScore: getEnvAsFloat("ADVISORY_NEUTRAL_SCORE", 0.5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования ключей площадок
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting venue API keys")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	// Без хеша токена управляющий API остаётся открытым только в симуляции
	if c.Security.APITokenHash == "" && !c.Trading.SimulationMode {
		return fmt.Errorf("API_TOKEN_HASH is required outside simulation mode")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Trading.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.Trading.ScanInterval)
	}

	// Котировка обязана укладываться в цикл, иначе цикл не успевает
	if c.Trading.QuoteTimeout <= 0 || c.Trading.QuoteTimeout >= c.Trading.ScanInterval {
		return fmt.Errorf("QUOTE_TIMEOUT must be positive and below SCAN_INTERVAL, got %v", c.Trading.QuoteTimeout)
	}

	if c.Trading.StalenessWindow < c.Trading.ScanInterval {
		return fmt.Errorf("STALENESS_WINDOW must be at least SCAN_INTERVAL, got %v", c.Trading.StalenessWindow)
	}

	if c.Trading.MinProfitPct <= 0 {
		return fmt.Errorf("MIN_PROFIT_PCT must be positive, got %v", c.Trading.MinProfitPct)
	}

	if c.Trading.MaxCapitalPerTrade <= 0 || c.Trading.TradeCapital <= 0 {
		return fmt.Errorf("capital limits must be positive")
	}

	if c.Trading.TradeCapital > c.Trading.MaxCapitalPerTrade {
		return fmt.Errorf("TRADE_CAPITAL %v exceeds MAX_CAPITAL_PER_TRADE %v",
			c.Trading.TradeCapital, c.Trading.MaxCapitalPerTrade)
	}

	if c.Trading.MaxConcurrentExecutions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_EXECUTIONS must be at least 1, got %d", c.Trading.MaxConcurrentExecutions)
	}

	if c.Trading.AdvisoryAcceptThreshold < 0 || c.Trading.AdvisoryAcceptThreshold > 1 {
		return fmt.Errorf("ADVISORY_ACCEPT_THRESHOLD must be in [0,1], got %v", c.Trading.AdvisoryAcceptThreshold)
	}

	if c.Trading.MaxRetries < 0 || c.Trading.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES must be between 0 and 10, got %d", c.Trading.MaxRetries)
	}

	if c.Trading.LegTimeout <= 0 || c.Trading.BridgeTimeout <= 0 {
		return fmt.Errorf("leg timeouts must be positive")
	}

	if c.Advisory.NeutralScore < 0 || c.Advisory.NeutralScore > 1 {
		return fmt.Errorf("ADVISORY_NEUTRAL_SCORE must be in [0,1], got %v", c.Advisory.NeutralScore)
	}

	if len(c.Chains.Enabled) == 0 {
		return fmt.Errorf("ENABLED_CHAINS must not be empty")
	}

	// Вне симуляции реальные шлюзы обязательны
	if !c.Trading.SimulationMode {
		if c.Bridge.URL == "" {
			return fmt.Errorf("BRIDGE_URL is required outside simulation mode")
		}
		if len(c.Venues.Endpoints) == 0 {
			return fmt.Errorf("at least one VENUE_URL_* endpoint is required outside simulation mode")
		}
	}

	return nil
}

// InitialSettings возвращает стартовые торговые настройки из окружения
func (c *Config) InitialSettings() TradingConfig {
	return c.Trading
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsMap собирает переменные вида PREFIX_NAME=value в map[name]value
func getEnvAsMap(prefix string) map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key, value := kv[:idx], kv[idx+1:]
		if !strings.HasPrefix(key, prefix+"_") || value == "" {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, prefix+"_"))
		out[name] = value
	}
	return out
}
