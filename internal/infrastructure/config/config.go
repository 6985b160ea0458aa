package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Isolation IsolationConfig `toml:"isolation"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" toml:"host"`
}

// StorageConfig holds managed storage configuration.
type StorageConfig struct {
	// DataDir is the root under which extensions, partitions and state live
	DataDir string `envconfig:"DATA_DIR" default:"/var/lib/sitedeck" toml:"data_dir"`

	// BundledDir optionally holds extensions seeded at startup
	BundledDir string `envconfig:"BUNDLED_DIR" default:"" toml:"bundled_dir"`
}

// IsolationConfig holds partitioning policy configuration.
// These values come from persisted application settings; changing the
// policy invalidates all previously derived partition keys.
type IsolationConfig struct {
	Policy string `envconfig:"ISOLATION_POLICY" default:"per_origin" toml:"policy"`

	// DefaultRiskPolicy points at a YAML risk-tier document; empty uses
	// the compiled-in defaults.
	RiskPolicyPath string `envconfig:"RISK_POLICY_PATH" default:"" toml:"risk_policy_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load loads configuration from the environment, then overlays the
// optional settings file named by SITEDECK_CONFIG. The settings file
// holds the user's persisted preferences and wins over the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SITEDECK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("SITEDECK_CONFIG"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration or returns defaults on failure.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			DataDir: "/var/lib/sitedeck",
		},
		Isolation: IsolationConfig{
			Policy: "per_origin",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// overlayFile merges a TOML settings file into cfg. Decoding happens
// directly into the live config, so keys absent from the file keep their
// current env/default values.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return nil
}
