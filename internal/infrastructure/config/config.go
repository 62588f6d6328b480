// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// A .env file in the working directory is loaded first (if present) so
// that NIBO_API_KEY and friends can live outside the shell profile.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	apiKey := cfg.Nibo.APIKey
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Nibo          NiboConfig          `yaml:"nibo"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// NiboConfig holds Nibo API configuration
type NiboConfig struct {
	APIKey         string `yaml:"api_key"`
	UserID         string `yaml:"user_id"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ReconcileConfig holds matching and auto-confirmation settings
type ReconcileConfig struct {
	// Threshold is the minimum score (exclusive) for a proposal.
	Threshold int `yaml:"threshold"`
	// AllowFileReuse keeps a file in the available set after it has
	// been attached, so one document can back multiple schedules.
	AllowFileReuse bool `yaml:"allow_file_reuse"`
	// LookbackDays bounds the schedule search window.
	LookbackDays int `yaml:"lookback_days"`
	// MaxCandidates caps how many schedules a search returns (0 = API default).
	MaxCandidates int `yaml:"max_candidates"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${NIBO_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILE_DB_PATH", "nibo_reconcile.db"),
		},
		Nibo: NiboConfig{
			APIKey:         os.Getenv("NIBO_API_KEY"),
			UserID:         os.Getenv("NIBO_USER_ID"),
			BaseURL:        getEnv("NIBO_BASE_URL", "https://api.nibo.com.br/empresas/v1"),
			TimeoutSeconds: getEnvInt("NIBO_TIMEOUT_SECONDS", 60),
		},
		Reconcile: ReconcileConfig{
			Threshold:      getEnvInt("RECONCILE_THRESHOLD", 50),
			AllowFileReuse: getEnv("RECONCILE_ALLOW_FILE_REUSE", "true") == "true",
			LookbackDays:   getEnvInt("RECONCILE_LOOKBACK_DAYS", 30),
			MaxCandidates:  getEnvInt("RECONCILE_MAX_CANDIDATES", 100),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	// Best effort: a missing .env is fine.
	_ = godotenv.Load()

	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values that the YAML file omitted
func (c *Config) applyDefaults() {
	if c.Nibo.BaseURL == "" {
		c.Nibo.BaseURL = "https://api.nibo.com.br/empresas/v1"
	}
	if c.Nibo.TimeoutSeconds == 0 {
		c.Nibo.TimeoutSeconds = 60
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "nibo_reconcile.db"
	}
	if c.Reconcile.Threshold == 0 {
		c.Reconcile.Threshold = 50
	}
	if c.Reconcile.LookbackDays == 0 {
		c.Reconcile.LookbackDays = 30
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Nibo.APIKey, "NIBO_API_KEY", "NIBO_APIKEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
