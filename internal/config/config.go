package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Bot core
	Bot BotConfig

	// Stop management
	Stops StopsConfig

	// Infrastructure
	Redis    RedisConfig
	Database DatabaseConfig
	API      APIConfig
	WSFeed   WSFeedConfig
	Decision DecisionConfig
}

// BotConfig holds the trading bot core configuration
type BotConfig struct {
	Symbol           string
	Timeframe        string
	BarStream        string        // Redis stream carrying finalized bars
	ConsumerGroup    string
	RulePackPath     string        // YAML/JSON rule pack file ("" = none)
	RulePackRedisKey string        // Redis key holding the rule pack ("" = file only)
	RuleReloadInterval time.Duration // How often to re-check the rule pack source
	EntryScoreMin    float64       // Minimum entry score to raise a signal
	ConfirmBars      int           // Bars a signal may wait for confirmation
	MaxBarsHeld      int           // Force exit after this many bars (0 = never)
	RiskPerTrade     float64       // Fraction of capital risked per trade
	Capital          float64
	BarTimeout       time.Duration // Watchdog bound for one bar cycle
	LookbackBars     int           // Feature engine history window
}

// StopsConfig holds trailing-stop fallback configuration
type StopsConfig struct {
	Mode          string  // "percent", "atr", "structure"
	TrailPercent  float64 // percent mode: distance from price, e.g. 0.02
	ATRMultiple   float64 // atr mode: multiple of current ATR
	SwingLookback int     // structure mode: bars to scan for swing points
	InitialATRMul float64 // initial stop distance at entry, in ATR multiples
	TakeProfitRR  float64 // take profit as a multiple of initial risk
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig holds PostgreSQL configuration for decision persistence
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port         int
	JWTSecret    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WSFeedConfig holds the websocket decision feed configuration
type WSFeedConfig struct {
	Port           int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxConnections int
}

// DecisionConfig holds decision output configuration
type DecisionConfig struct {
	StreamName       string // Redis stream for published decisions ("" = disabled)
	PersistEnabled   bool
	DBWriteBatchSize int
	DBWriteInterval  time.Duration
	DBWriteQueueSize int
	DBMaxRetries     int
	DBRetryDelay     time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Bot: BotConfig{
			Symbol:           getEnv("BOT_SYMBOL", "BTCUSDT"),
			Timeframe:        getEnv("BOT_TIMEFRAME", "1m"),
			BarStream:        getEnv("BOT_BAR_STREAM", "bars"),
			ConsumerGroup:    getEnv("BOT_CONSUMER_GROUP", "trading-bot"),
			RulePackPath:     getEnv("BOT_RULEPACK_PATH", ""),
			RulePackRedisKey: getEnv("BOT_RULEPACK_REDIS_KEY", ""),
			RuleReloadInterval: getEnvAsDuration("BOT_RULE_RELOAD_INTERVAL", 30*time.Second),
			EntryScoreMin:    getEnvAsFloat("BOT_ENTRY_SCORE_MIN", 0.6),
			ConfirmBars:      getEnvAsInt("BOT_CONFIRM_BARS", 3),
			MaxBarsHeld:      getEnvAsInt("BOT_MAX_BARS_HELD", 0),
			RiskPerTrade:     getEnvAsFloat("BOT_RISK_PER_TRADE", 0.01),
			Capital:          getEnvAsFloat("BOT_CAPITAL", 10000),
			BarTimeout:       getEnvAsDuration("BOT_BAR_TIMEOUT", 2*time.Second),
			LookbackBars:     getEnvAsInt("BOT_LOOKBACK_BARS", 200),
		},
		Stops: StopsConfig{
			Mode:          getEnv("STOPS_MODE", "atr"),
			TrailPercent:  getEnvAsFloat("STOPS_TRAIL_PERCENT", 0.02),
			ATRMultiple:   getEnvAsFloat("STOPS_ATR_MULTIPLE", 2.0),
			SwingLookback: getEnvAsInt("STOPS_SWING_LOOKBACK", 10),
			InitialATRMul: getEnvAsFloat("STOPS_INITIAL_ATR_MULTIPLE", 2.5),
			TakeProfitRR:  getEnvAsFloat("STOPS_TAKE_PROFIT_RR", 2.0),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "trading_bot"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Port:         getEnvAsInt("API_PORT", 8090),
			JWTSecret:    getEnv("API_JWT_SECRET", ""),
			ReadTimeout:  getEnvAsDuration("API_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("API_WRITE_TIMEOUT", 10*time.Second),
		},
		WSFeed: WSFeedConfig{
			Port:           getEnvAsInt("WS_FEED_PORT", 8092),
			PingInterval:   getEnvAsDuration("WS_FEED_PING_INTERVAL", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_FEED_WRITE_TIMEOUT", 10*time.Second),
			MaxConnections: getEnvAsInt("WS_FEED_MAX_CONNECTIONS", 100),
		},
		Decision: DecisionConfig{
			StreamName:       getEnv("DECISION_STREAM_NAME", "decisions"),
			PersistEnabled:   getEnvAsBool("DECISION_PERSIST_ENABLED", false),
			DBWriteBatchSize: getEnvAsInt("DECISION_DB_WRITE_BATCH_SIZE", 100),
			DBWriteInterval:  getEnvAsDuration("DECISION_DB_WRITE_INTERVAL", 5*time.Second),
			DBWriteQueueSize: getEnvAsInt("DECISION_DB_WRITE_QUEUE_SIZE", 1000),
			DBMaxRetries:     getEnvAsInt("DECISION_DB_MAX_RETRIES", 3),
			DBRetryDelay:     getEnvAsDuration("DECISION_DB_RETRY_DELAY", 1*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Symbol == "" {
		return fmt.Errorf("BOT_SYMBOL is required")
	}
	if c.Bot.Timeframe == "" {
		return fmt.Errorf("BOT_TIMEFRAME is required")
	}
	if c.Bot.RiskPerTrade <= 0 || c.Bot.RiskPerTrade > 0.1 {
		return fmt.Errorf("BOT_RISK_PER_TRADE must be in (0, 0.1], got %f", c.Bot.RiskPerTrade)
	}
	switch c.Stops.Mode {
	case "percent", "atr", "structure":
	default:
		return fmt.Errorf("STOPS_MODE must be percent, atr or structure, got %q", c.Stops.Mode)
	}
	if c.Decision.PersistEnabled && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required when decision persistence is enabled")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
