package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"crypto-signal-bot/internal/engine"
	"crypto-signal-bot/internal/logging"
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	EngineConfig       engine.Config      `json:"engine"`
	StoreConfig        StoreConfig        `json:"store"`
	NotificationConfig NotificationConfig `json:"notification"`
	RedisConfig        RedisConfig        `json:"redis"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      logging.Config     `json:"logging"`
}

type BinanceConfig struct {
	BaseURL  string `json:"base_url"`
	MockMode bool   `json:"mock_mode"` // Use simulated data when Binance API is unavailable
}

// StoreConfig locates the persisted JSON store documents
type StoreConfig struct {
	Dir string `json:"dir"`
}

func (s StoreConfig) SignalCachePath() string {
	return filepath.Join(s.Dir, "signal_cache.json")
}

func (s StoreConfig) ActiveTradesPath() string {
	return filepath.Join(s.Dir, "active_trades.json")
}

func (s StoreConfig) StrategyHistoryPath() string {
	return filepath.Join(s.Dir, "strategy_history.json")
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// RedisConfig holds the optional dedup cache backend
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	IntervalSeconds int    `json:"interval_seconds"` // pause between passes in loop mode
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with defaults
		cfg = defaults()
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	if len(cfg.EngineConfig.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}
	if len(cfg.EngineConfig.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframes configured")
	}

	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		BinanceConfig: BinanceConfig{
			BaseURL:  "https://api.binance.com",
			MockMode: false,
		},
		EngineConfig: engine.DefaultConfig(),
		StoreConfig: StoreConfig{
			Dir: ".cache",
		},
		NotificationConfig: NotificationConfig{
			Enabled: false,
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
		ServerConfig: ServerConfig{
			Enabled:         false,
			Host:            "0.0.0.0",
			Port:            8080,
			IntervalSeconds: 300,
		},
		LoggingConfig: logging.Config{
			Level:      "INFO",
			Output:     "stdout",
			Component:  "bot",
			JSONFormat: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)
	cfg.BinanceConfig.MockMode = getEnvBoolOrDefault("MOCK_MODE", cfg.BinanceConfig.MockMode)

	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.EngineConfig.Symbols = splitList(v)
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		cfg.EngineConfig.Timeframes = splitList(v)
	}
	cfg.EngineConfig.ConfidenceThreshold = getEnvFloatOrDefault("CONFIDENCE_THRESHOLD", cfg.EngineConfig.ConfidenceThreshold)
	cfg.EngineConfig.MomentumFloor = getEnvFloatOrDefault("MOMENTUM_FLOOR", cfg.EngineConfig.MomentumFloor)
	cfg.EngineConfig.MaxSignalsPerRun = getEnvIntOrDefault("MAX_SIGNALS_PER_RUN", cfg.EngineConfig.MaxSignalsPerRun)

	cfg.StoreConfig.Dir = getEnvOrDefault("STORE_DIR", cfg.StoreConfig.Dir)

	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.NotificationConfig.Telegram.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvBoolOrDefault("DISCORD_ENABLED", cfg.NotificationConfig.Discord.Enabled)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("SERVER_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.IntervalSeconds = getEnvIntOrDefault("RUN_INTERVAL_SECONDS", cfg.ServerConfig.IntervalSeconds)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
