// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"trade-journal/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	MarketData  MarketDataConfig  `mapstructure:"market_data"`
	AI          AIConfig          `mapstructure:"ai"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Credentials Credentials       `mapstructure:"-" json:"-"` // Loaded separately
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	// Timezone groups trades into calendar days, weeks and months.
	Timezone string `mapstructure:"timezone"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MarketDataConfig holds market data provider configuration.
type MarketDataConfig struct {
	Provider          string        `mapstructure:"provider"` // yahoo, kite
	BaseURL           string        `mapstructure:"base_url"`
	HistoryRange      string        `mapstructure:"history_range"`
	CurrentTimeout    time.Duration `mapstructure:"current_timeout"`
	HistoryTimeout    time.Duration `mapstructure:"history_timeout"`
	PredictTimeout    time.Duration `mapstructure:"predict_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	BulkConcurrency   int           `mapstructure:"bulk_concurrency"`
	Retries           int           `mapstructure:"retries"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
	// Holidays are exchange holidays as YYYY-MM-DD.
	Holidays []string `mapstructure:"holidays"`
}

// AIConfig holds summarizer configuration.
type AIConfig struct {
	Provider string        `mapstructure:"provider"` // gemini, openai
	Models   []string      `mapstructure:"models"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig holds the optional cache configuration.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds session and password settings.
type AuthConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	AuditLog   bool          `mapstructure:"audit_log"`
	AuditDir   string        `mapstructure:"audit_dir"`
}

// Credentials holds API credentials.
type Credentials struct {
	Gemini GeminiCredentials `mapstructure:"gemini"`
	OpenAI OpenAICredentials `mapstructure:"openai"`
	Kite   KiteCredentials   `mapstructure:"kite"`
}

// GeminiCredentials holds Google Gemini API credentials.
type GeminiCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// KiteCredentials holds Zerodha Kite Connect credentials.
type KiteCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A .env in the working directory feeds the environment overrides below.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	normalizeAIModels(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	log := logging.DefaultLogConfig()
	log.FilePath = filepath.Join(configDir, "logs", "journal.log")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.cors_origin", "http://localhost:5173")
	v.SetDefault("server.timezone", "Asia/Kolkata")

	v.SetDefault("database.path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.console", log.Console)
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.file", log.File)
	v.SetDefault("logging.file_path", log.FilePath)
	v.SetDefault("logging.max_size", log.MaxSize)
	v.SetDefault("logging.max_backups", log.MaxBackups)
	v.SetDefault("logging.max_age", log.MaxAge)

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.history_range", "6mo")
	v.SetDefault("market_data.current_timeout", 10*time.Second)
	v.SetDefault("market_data.history_timeout", 15*time.Second)
	v.SetDefault("market_data.predict_timeout", 20*time.Second)
	v.SetDefault("market_data.requests_per_minute", 120)
	v.SetDefault("market_data.cache_ttl", 5*time.Minute)
	v.SetDefault("market_data.bulk_concurrency", 4)
	v.SetDefault("market_data.retries", 2)
	v.SetDefault("market_data.retry_wait", 300*time.Millisecond)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.models", DefaultGeminiModels)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.cache_ttl", 24*time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.audit_log", true)
	v.SetDefault("auth.audit_dir", filepath.Join(configDir, "audit"))
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Defaults apply; leave a template behind for the user to edit.
		_ = createTemplateConfig(configDir)
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// AI credentials
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Credentials.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("JOURNAL_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}

	// Kite credentials
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Kite.AccessToken = v
	}
	if v := os.Getenv("JOURNAL_MARKET_PROVIDER"); v != "" {
		cfg.MarketData.Provider = v
	}

	// Server and storage
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CLIENT_URL"); v != "" {
		cfg.Server.CORSOrigin = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Redis
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
}

// DefaultGeminiModels is the model fallback order for Gemini.
var DefaultGeminiModels = []string{"gemini-3-flash", "gemini-2.5-flash", "gemini-2.0-flash"}

// DefaultOpenAIModels is the model fallback order for OpenAI.
var DefaultOpenAIModels = []string{"gpt-4o-mini"}

// normalizeAIModels swaps the Gemini default list for the OpenAI one when the
// provider was switched without naming models.
func normalizeAIModels(cfg *Config) {
	if cfg.AI.Provider != "openai" || len(cfg.AI.Models) != len(DefaultGeminiModels) {
		return
	}
	for i, m := range cfg.AI.Models {
		if m != DefaultGeminiModels[i] {
			return
		}
	}
	cfg.AI.Models = append([]string(nil), DefaultOpenAIModels...)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case "yahoo", "kite":
	default:
		return fmt.Errorf("invalid market data provider: %s (must be 'yahoo' or 'kite')", c.MarketData.Provider)
	}
	if c.MarketData.Provider == "kite" && c.Credentials.Kite.APIKey == "" {
		return fmt.Errorf("kite market data provider requires kite api_key")
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid ai provider: %s (must be 'gemini' or 'openai')", c.AI.Provider)
	}
	if len(c.AI.Models) == 0 {
		return fmt.Errorf("ai.models must list at least one model")
	}

	if c.MarketData.CurrentTimeout <= 0 || c.MarketData.HistoryTimeout <= 0 || c.MarketData.PredictTimeout <= 0 {
		return fmt.Errorf("market data timeouts must be positive")
	}
	if c.MarketData.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if c.MarketData.BulkConcurrency < 1 || c.MarketData.BulkConcurrency > 10 {
		return fmt.Errorf("bulk_concurrency must be between 1 and 10")
	}
	if c.MarketData.Retries < 0 || c.MarketData.Retries > 5 {
		return fmt.Errorf("market_data.retries must be between 0 and 5")
	}
	for _, h := range c.MarketData.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("invalid market_data.holidays entry %q (want YYYY-MM-DD)", h)
		}
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			return fmt.Errorf("invalid server.timezone %q: %w", c.Server.Timezone, err)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}

// Location resolves Server.Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Server.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AIAPIKey returns the credential for the configured AI provider.
func (c *Config) AIAPIKey() string {
	if c.AI.Provider == "openai" {
		return c.Credentials.OpenAI.APIKey
	}
	return c.Credentials.Gemini.APIKey
}
