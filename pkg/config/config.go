package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all homely configuration.
type Config struct {
	Listen      string            `yaml:"listen" validate:"required"`
	DBPath      string            `yaml:"db_path" validate:"required"`
	BasePath    string            `yaml:"base_path" validate:"required,startswith=/"`
	Cache       CacheConfig       `yaml:"cache"`
	Search      SearchConfig      `yaml:"search"`
	Images      ImagesConfig      `yaml:"images"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	OpLog       OpLogConfig       `yaml:"oplog"`
	Warmup      WarmupConfig      `yaml:"warmup"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`
}

// SearchConfig controls the search optimizer.
type SearchConfig struct {
	MaxResults     int           `yaml:"max_results" validate:"gt=0"`
	CollapseMisses bool          `yaml:"collapse_misses"`
	SlowThreshold  time.Duration `yaml:"slow_threshold" validate:"gte=0"`
}

// ImagesConfig sets the forced quality and format of image variants.
type ImagesConfig struct {
	Quality int    `yaml:"quality" validate:"gte=1,lte=100"`
	Format  string `yaml:"format" validate:"required,oneof=webp avif jpeg png"`
}

// MaintenanceConfig controls how much log history maintenance keeps.
type MaintenanceConfig struct {
	LogRetention       time.Duration `yaml:"log_retention" validate:"gte=0"`
	SearchLogRetention time.Duration `yaml:"search_log_retention" validate:"gte=0"`
}

// OpLogConfig controls the background pruning of slow-operation records.
type OpLogConfig struct {
	RetentionInterval time.Duration `yaml:"retention_interval" validate:"gte=0"`
}

// WarmupConfig sizes the datasets cached by cache-popular.
type WarmupConfig struct {
	PopularLimit   int           `yaml:"popular_limit" validate:"gt=0"`
	TrendingLimit  int           `yaml:"trending_limit" validate:"gt=0"`
	TrendingWindow time.Duration `yaml:"trending_window" validate:"gt=0"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "homely.db",
		BasePath: "/performance-optimizer",
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Search: SearchConfig{
			MaxResults:    50,
			SlowThreshold: time.Second,
		},
		Images: ImagesConfig{
			Quality: 85,
			Format:  "webp",
		},
		Maintenance: MaintenanceConfig{
			LogRetention:       30 * 24 * time.Hour,
			SearchLogRetention: 90 * 24 * time.Hour,
		},
		OpLog: OpLogConfig{
			RetentionInterval: time.Hour,
		},
		Warmup: WarmupConfig{
			PopularLimit:   20,
			TrendingLimit:  10,
			TrendingWindow: 7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML config file, expands environment variables and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
