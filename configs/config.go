package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Price     PriceConfig     `yaml:"price"`
	Auth      AuthConfig      `yaml:"auth"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port    string `yaml:"port"`
	OpsPort string `yaml:"ops_port"`
	Env     string `yaml:"env"`
}

// StoreConfig selects the ledger store
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PriceConfig holds market data configuration
type PriceConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	DexScreenerURL  string        `yaml:"dexscreener_url"`
	BinanceURL      string        `yaml:"binance_url"`
	BaseCurrency    string        `yaml:"base_currency"`
	DisplayCurrency string        `yaml:"display_currency"`
	ChainID         string        `yaml:"chain_id"`
}

// AuthConfig holds session configuration
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// OpenAIConfig holds AI summary configuration. An empty key disables summaries.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ReconcileConfig holds the reconciliation schedule
type ReconcileConfig struct {
	Schedule string `yaml:"schedule"`
}

// TelegramConfig holds drift alert configuration. Alerts are off unless both
// the bot token and chat id are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			OpsPort: "8081",
			Env:     "development",
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			Dir:        "./data/ledgers",
			SQLitePath: "./data/ledger.db",
		},
		Price: PriceConfig{
			CacheTTL:        30 * time.Second,
			DexScreenerURL:  "https://api.dexscreener.com",
			BinanceURL:      "https://api.binance.com",
			BaseCurrency:    "USD",
			DisplayCurrency: "USD",
			ChainID:         "ethereum",
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Reconcile: ReconcileConfig{
			Schedule: "*/15 * * * *",
		},
	}
}

// Load loads configuration. Precedence is environment, then the YAML file
// named by CONFIG_FILE, then defaults. A .env file is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.OpsPort = getEnv("OPS_PORT", c.Server.OpsPort)
	c.Server.Env = getEnv("GO_ENV", c.Server.Env)

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.Dir = getEnv("STORE_DIR", c.Store.Dir)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	ttl, err := getDuration("PRICE_CACHE_TTL", c.Price.CacheTTL)
	if err != nil {
		return err
	}
	c.Price.CacheTTL = ttl
	c.Price.DexScreenerURL = getEnv("DEXSCREENER_URL", c.Price.DexScreenerURL)
	c.Price.BinanceURL = getEnv("BINANCE_URL", c.Price.BinanceURL)
	c.Price.BaseCurrency = strings.ToUpper(getEnv("BASE_CURRENCY", c.Price.BaseCurrency))
	c.Price.DisplayCurrency = strings.ToUpper(getEnv("DISPLAY_CURRENCY", c.Price.DisplayCurrency))
	c.Price.ChainID = getEnv("CHAIN_ID", c.Price.ChainID)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	sessionTTL, err := getDuration("SESSION_TTL", c.Auth.SessionTTL)
	if err != nil {
		return err
	}
	c.Auth.SessionTTL = sessionTTL
	if raw := os.Getenv("SECURE_COOKIE"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIE: %w", err)
		}
		c.Auth.SecureCookie = secure
	}

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)

	c.Reconcile.Schedule = getEnv("RECONCILE_SCHEDULE", c.Reconcile.Schedule)

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", c.Telegram.ChatID)
	c.Telegram.Timezone = getEnv("TZ", c.Telegram.Timezone)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want file, sqlite or postgres)", c.Store.Backend)
	}
	if c.Price.CacheTTL <= 0 {
		return fmt.Errorf("price cache TTL must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Price.BaseCurrency == "" || c.Price.DisplayCurrency == "" {
		return fmt.Errorf("base and display currencies are required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
