// Package config loads runtime settings from the environment (and an
// optional config.yaml) and opens the backing services.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderNone   = "none"
)

type Config struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	FrontendURL string `mapstructure:"frontend_url"`

	DataBackend   string `mapstructure:"data_backend"`
	DatabaseURL   string `mapstructure:"database_url"`
	MongoURI      string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`

	AIProvider         string        `mapstructure:"ai_provider"`
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	GeminiModel        string        `mapstructure:"gemini_model"`
	AnthropicAPIKey    string        `mapstructure:"anthropic_api_key"`
	ClaudeModel        string        `mapstructure:"claude_model"`
	IconSuggestTimeout time.Duration `mapstructure:"icon_suggest_timeout"`
	AnalysisTimeout    time.Duration `mapstructure:"ai_analysis_timeout"`
	IconCacheTTL       time.Duration `mapstructure:"icon_cache_ttl"`

	RateLimitPerMinute   int    `mapstructure:"rate_limit_per_minute"`
	LogLevel             string `mapstructure:"log_level"`
	LogFormat            string `mapstructure:"log_format"`
	DefaultMonthlyBudget string `mapstructure:"default_monthly_budget"`
}

// Load reads .env (if present), then builds the Config from defaults,
// config.yaml and environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.expensewise")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("frontend_url", "http://localhost:5173")

	v.SetDefault("data_backend", BackendPostgres)
	v.SetDefault("database_url", "")
	v.SetDefault("mongodb_uri", "")
	v.SetDefault("mongodb_database", "expensewise")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("auto_migrate", true)

	v.SetDefault("ai_provider", ProviderGemini)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("claude_model", "claude-3-haiku-20240307")
	v.SetDefault("icon_suggest_timeout", 5*time.Second)
	v.SetDefault("ai_analysis_timeout", 60*time.Second)
	v.SetDefault("icon_cache_ttl", 30*24*time.Hour)

	v.SetDefault("rate_limit_per_minute", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("default_monthly_budget", "100000")
}

func (c *Config) normalize() {
	c.DataBackend = strings.ToLower(strings.TrimSpace(c.DataBackend))
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_BACKEND=%s", BackendPostgres)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when DATA_BACKEND=%s", BackendMongo)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DATA_BACKEND %q (want postgres, mongo or memory)", c.DataBackend)
	}

	switch c.AIProvider {
	case ProviderGemini, ProviderClaude, ProviderNone:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (want gemini, claude or none)", c.AIProvider)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat)
	}
	if c.IconSuggestTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return errors.New("AI timeouts must be positive")
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1, got: %d", c.RateLimitPerMinute)
	}
	if _, err := c.MonthlyBudgetDefault(); err != nil {
		return err
	}
	return nil
}

// MonthlyBudgetDefault is the budget a fresh global state starts with.
func (c *Config) MonthlyBudgetDefault() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.DefaultMonthlyBudget))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid DEFAULT_MONTHLY_BUDGET %q: %w", c.DefaultMonthlyBudget, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("DEFAULT_MONTHLY_BUDGET must not be negative, got: %s", d)
	}
	return d, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// AIEnabled reports whether the selected provider has a key.
func (c *Config) AIEnabled() bool {
	switch c.AIProvider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderClaude:
		return c.AnthropicAPIKey != ""
	}
	return false
}
