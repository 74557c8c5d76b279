// Package config handles configuration loading for the market map server.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. MARKETMAP_API_PORT.
const EnvPrefix = "MARKETMAP"

// Config represents the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Data     DataConfig     `mapstructure:"data"     yaml:"data"`
	Refresh  RefreshConfig  `mapstructure:"refresh"  yaml:"refresh"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
	Events   EventsConfig   `mapstructure:"events"   yaml:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host           string        `mapstructure:"host"            yaml:"host"`
	Port           int           `mapstructure:"port"            yaml:"port"`
	CORSOrigins    []string      `mapstructure:"cors_origins"    yaml:"cors_origins"`
	StaticDir      string        `mapstructure:"static_dir"      yaml:"static_dir"` // served for non-API paths
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// DataConfig holds treemap document settings.
type DataConfig struct {
	Path           string  `mapstructure:"path"            yaml:"path"`
	Lookback       string  `mapstructure:"lookback"        yaml:"lookback"` // provider range, e.g. "5d"
	PlaceholderCap float64 `mapstructure:"placeholder_cap" yaml:"placeholder_cap"`
}

// RefreshConfig holds refresh job settings.
type RefreshConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	ChunkSize   int           `mapstructure:"chunk_size"  yaml:"chunk_size"`  // symbols per provider call
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"` // provider calls in flight
}

// ProviderConfig holds market data provider settings.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"   yaml:"base_url"`
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// CacheConfig holds quote cache settings. An empty RedisAddr selects the
// in-process cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"            yaml:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password" json:"-"`
	RedisDB       int           `mapstructure:"redis_db"       yaml:"redis_db"`
}

// EventsConfig holds refresh event publishing settings. No brokers disables
// publishing.
type EventsConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers"`
	Topic        string   `mapstructure:"topic"         yaml:"topic"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketmap/config.yaml (home directory)
//  3. /etc/marketmap/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment first.
// Environment variables override config file values.
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketmap"))
	v.AddConfigPath("/etc/marketmap")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Validate checks values that would make the server misbehave.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Data.Path == "" {
		return errors.New("data.path is required")
	}
	if lookbackDays(c.Data.Lookback) < 2 {
		return fmt.Errorf("data.lookback %q must cover at least 2 days", c.Data.Lookback)
	}
	if c.Data.PlaceholderCap <= 0 {
		return errors.New("data.placeholder_cap must be positive")
	}
	if c.Refresh.ChunkSize <= 0 || c.Refresh.Concurrency <= 0 {
		return errors.New("refresh.chunk_size and refresh.concurrency must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.static_dir", ".")
	v.SetDefault("api.request_timeout", 30*time.Second)

	// Document defaults
	v.SetDefault("data.path", "sp500_data.json")
	v.SetDefault("data.lookback", "5d")
	v.SetDefault("data.placeholder_cap", 10.0)

	// Refresh defaults
	v.SetDefault("refresh.timeout", 2*time.Minute)
	v.SetDefault("refresh.chunk_size", 20)
	v.SetDefault("refresh.concurrency", 4)

	// Provider defaults
	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.rate_limit", 5)
	v.SetDefault("provider.timeout", 30*time.Second)

	// Cache defaults (1 minute, in-process)
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// Events defaults (disabled)
	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.topic", "marketmap.refresh")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// loadDotEnv loads ./.env into the process environment when present.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// lookbackDays converts a provider range such as "5d", "1mo" or "1y" into an
// approximate number of calendar days. Unknown values yield 0.
func lookbackDays(r string) int {
	r = strings.TrimSpace(strings.ToLower(r))
	var n int
	var unit string
	if _, err := fmt.Sscanf(r, "%d%s", &n, &unit); err != nil {
		return 0
	}
	switch unit {
	case "d":
		return n
	case "wk":
		return n * 7
	case "mo":
		return n * 30
	case "y":
		return n * 365
	default:
		return 0
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
