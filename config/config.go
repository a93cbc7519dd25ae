package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	StraddleConfig     StraddleConfig     `json:"straddle"`
	SwapConfig         SwapConfig         `json:"swap"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
}

type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
	TestNet   bool   `json:"testnet"`
	MockMode  bool   `json:"mock_mode"` // Use simulated data when Binance API is unavailable
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	CacheTTL int    `json:"cache_ttl"` // Seconds for market data cache entries
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// StraddleConfig holds straddle engine settings
type StraddleConfig struct {
	Symbols           []string `json:"symbols"`            // Symbols to auto-monitor, e.g. ["BTCUSDT"]
	Enabled           bool     `json:"enabled"`            // Master switch for the monitoring loop
	MonitorInterval   int      `json:"monitor_interval"`   // Seconds between cycles per symbol
	LongInterval      string   `json:"long_interval"`      // Long-horizon kline interval, e.g. "1h"
	MaxTradeLimit     int      `json:"max_trade_limit"`    // Max open trades per position
	MinNotionalUSD    float64  `json:"min_notional_usd"`   // Minimum USD value to create a bracket
	TradeAmountUSD    float64  `json:"trade_amount_usd"`   // Target USD notional per bracket leg
	ProfitMultiplier  float64  `json:"profit_multiplier"`  // Scales dynamic profit thresholds
	StablecoinSymbols []string `json:"stablecoin_symbols"` // Candidate stablecoins for rebalancing
	DryRun            bool     `json:"dry_run"`            // Compute decisions without executing swaps
}

type SwapConfig struct {
	FeePercentage float64 `json:"fee_percentage"` // Default conversion fee when the venue omits it
	MockMode      bool    `json:"mock_mode"`
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

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type AuthConfig struct {
	Enabled       bool   `json:"enabled"`
	JWTSecret     string `json:"jwt_secret"`
	AdminUser     string `json:"admin_user"`
	AdminPassHash string `json:"admin_pass_hash"` // bcrypt hash of the operator password
	TokenTTLHours int    `json:"token_ttl_hours"`
}

// Load reads config.json if present and applies environment overrides on top.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = defaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		BinanceConfig: BinanceConfig{
			BaseURL: "https://api.binance.com",
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "straddle_bot",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Address:  "localhost:6379",
			PoolSize: 10,
			CacheTTL: 30,
		},
		VaultConfig: VaultConfig{
			MountPath: "secret",
		},
		StraddleConfig: StraddleConfig{
			Symbols:           []string{"BTCUSDT"},
			MonitorInterval:   60,
			LongInterval:      "1h",
			MaxTradeLimit:     10,
			MinNotionalUSD:    10.0,
			TradeAmountUSD:    100.0,
			ProfitMultiplier:  1.0,
			StablecoinSymbols: []string{"USDT", "USDC", "FDUSD", "TUSD"},
			DryRun:            true,
		},
		SwapConfig: SwapConfig{
			FeePercentage: 0.1,
			MockMode:      true,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			Output:     "stdout",
			JSONFormat: true,
		},
		ServerConfig: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		AuthConfig: AuthConfig{
			TokenTTLHours: 24,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.APIKey = getEnvOrDefault("BINANCE_API_KEY", cfg.BinanceConfig.APIKey)
	cfg.BinanceConfig.SecretKey = getEnvOrDefault("BINANCE_SECRET_KEY", cfg.BinanceConfig.SecretKey)
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)

	cfg.AuthConfig.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AdminUser = getEnvOrDefault("ADMIN_USER", cfg.AuthConfig.AdminUser)
	cfg.AuthConfig.AdminPassHash = getEnvOrDefault("ADMIN_PASS_HASH", cfg.AuthConfig.AdminPassHash)

	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
