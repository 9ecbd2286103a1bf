// Package config provides Viper-based hierarchical configuration management
// for the ingestion pipeline.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	AI struct {
		Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
		Model           string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds  int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		MonthlyQuota    int    `mapstructure:"monthly_quota" yaml:"monthly_quota"`
		TextBudgetChars int    `mapstructure:"text_budget_chars" yaml:"text_budget_chars"`
		APIKey          string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Currency struct {
		Reference      string `mapstructure:"reference" yaml:"reference"`
		RateAPIURL     string `mapstructure:"rate_api_url" yaml:"rate_api_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"currency" yaml:"currency"`

	Sync struct {
		PageDelayMillis int `mapstructure:"page_delay_ms" yaml:"page_delay_ms"`
		LookbackMonths  int `mapstructure:"lookback_months" yaml:"lookback_months"`
		PageSize        int `mapstructure:"page_size" yaml:"page_size"`
	} `mapstructure:"sync" yaml:"sync"`

	Rules struct {
		SeedFile string `mapstructure:"seed_file" yaml:"seed_file"`
	} `mapstructure:"rules" yaml:"rules"`
}

// LoadEnv reads a local .env file if one exists. Missing files are fine;
// the environment always wins over file contents.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load initializes Viper configuration with hierarchical loading:
// defaults, then an optional config file, then environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.ledgerpipe")
	v.AddConfigPath(".ledgerpipe")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEDGERPIPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file present but unreadable: continue with defaults
			// and environment, but tell the operator.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The Gemini key comes from the conventional unprefixed variable.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.path", "ledgerpipe.db")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("ai.monthly_quota", 20)
	v.SetDefault("ai.text_budget_chars", 20000)

	v.SetDefault("currency.reference", "USD")
	v.SetDefault("currency.rate_api_url", "https://api.frankfurter.dev/v1")
	v.SetDefault("currency.timeout_seconds", 10)

	v.SetDefault("sync.page_delay_ms", 500)
	v.SetDefault("sync.lookback_months", 3)
	v.SetDefault("sync.page_size", 50)

	v.SetDefault("rules.seed_file", "")
}

func validate(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if config.AI.Enabled {
		if config.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}
		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
		if config.AI.MonthlyQuota < 1 {
			return fmt.Errorf("ai.monthly_quota must be positive, got: %d", config.AI.MonthlyQuota)
		}
		if config.AI.TextBudgetChars < 1000 {
			return fmt.Errorf("ai.text_budget_chars must be at least 1000, got: %d", config.AI.TextBudgetChars)
		}
	}

	if len(config.Currency.Reference) != 3 {
		return fmt.Errorf("currency.reference must be a 3-letter code, got: %s", config.Currency.Reference)
	}

	if config.Sync.PageDelayMillis < 0 {
		return fmt.Errorf("sync.page_delay_ms must not be negative, got: %d", config.Sync.PageDelayMillis)
	}
	if config.Sync.LookbackMonths < 1 {
		return fmt.Errorf("sync.lookback_months must be positive, got: %d", config.Sync.LookbackMonths)
	}
	if config.Sync.PageSize < 1 || config.Sync.PageSize > 500 {
		return fmt.Errorf("sync.page_size must be between 1 and 500, got: %d", config.Sync.PageSize)
	}

	return nil
}

// ConfigureLogging builds a logrus logger from the Config struct.
func ConfigureLogging(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
