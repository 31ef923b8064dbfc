// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// The config struct is built once in main and passed into the services
// that need it; nothing in this package holds global state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration.
type Config struct {
	Baselinker    BaselinkerConfig    `yaml:"baselinker"`
	Sync          SyncConfig          `yaml:"sync"`
	Production    ProductionConfig    `yaml:"production"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BaselinkerConfig holds Baselinker API access settings.
type BaselinkerConfig struct {
	Token          string `yaml:"token"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SyncConfig holds defaults for sync runs.
type SyncConfig struct {
	// SourceStatusID is the Baselinker status polled by the scheduled
	// "paid orders" sync (Nowe - opłacone).
	SourceStatusID  int   `yaml:"source_status_id"`
	LookbackDays    int   `yaml:"lookback_days"`
	LimitPerPage    int   `yaml:"limit_per_page"`
	TargetStatusIDs []int `yaml:"target_status_ids"`
}

// ProductionConfig holds production planning settings.
type ProductionConfig struct {
	DeadlineDefaultDays int `yaml:"deadline_default_days"`
	// TargetStatusID is the raw/default production status orders enter
	// after sync (W produkcji - Surowe).
	TargetStatusID int `yaml:"target_status_id"`
	// CompletedStatusID is the Baselinker status an order is moved to
	// once all its pieces are packed.
	CompletedStatusID int `yaml:"completed_status_id"`
}

// StorageConfig holds database configuration.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${BASELINKER_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := &Config{
		Baselinker: BaselinkerConfig{
			Token:          os.Getenv("BASELINKER_TOKEN"),
			Endpoint:       getEnv("BASELINKER_ENDPOINT", "https://api.baselinker.com/connector.php"),
			TimeoutSeconds: getEnvInt("BASELINKER_TIMEOUT_SECONDS", 30),
		},
		Sync: SyncConfig{
			SourceStatusID: getEnvInt("SYNC_SOURCE_STATUS_ID", 155824),
			LookbackDays:   getEnvInt("SYNC_LOOKBACK_DAYS", 14),
			LimitPerPage:   getEnvInt("SYNC_LIMIT_PER_PAGE", 100),
		},
		Production: ProductionConfig{
			DeadlineDefaultDays: getEnvInt("DEADLINE_DEFAULT_DAYS", 14),
			TargetStatusID:      getEnvInt("BASELINKER_PRODUCTION_STATUS_ID", 138619),
			CompletedStatusID:   getEnvInt("BASELINKER_COMPLETED_STATUS_ID", 138623),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("SYNC_DB_PATH", "production_sync.db"),
		},
		API: APIConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables.
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to
// environment variables.
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks that the configuration is complete enough to run a sync.
// A missing API token is fatal before any work starts.
func (c *Config) Validate() error {
	if c.Baselinker.Token == "" {
		return fmt.Errorf("baselinker API token is not configured")
	}
	if c.Baselinker.Endpoint == "" {
		return fmt.Errorf("baselinker API endpoint is not configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Baselinker.Endpoint == "" {
		c.Baselinker.Endpoint = "https://api.baselinker.com/connector.php"
	}
	if c.Baselinker.TimeoutSeconds <= 0 {
		c.Baselinker.TimeoutSeconds = 30
	}
	if c.Sync.SourceStatusID == 0 {
		c.Sync.SourceStatusID = 155824
	}
	if c.Sync.LookbackDays <= 0 {
		c.Sync.LookbackDays = 14
	}
	if c.Sync.LimitPerPage <= 0 {
		c.Sync.LimitPerPage = 100
	}
	if c.Production.DeadlineDefaultDays <= 0 {
		c.Production.DeadlineDefaultDays = 14
	}
	if c.Production.TargetStatusID == 0 {
		c.Production.TargetStatusID = 138619
	}
	if c.Production.CompletedStatusID == 0 {
		c.Production.CompletedStatusID = 138623
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "production_sync.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
