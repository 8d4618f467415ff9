// Package config loads curator configuration from curator.yaml and
// CURATOR_* environment variables, environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration for one curator invocation.
type Config struct {
	// DBPath overrides database discovery when set.
	DBPath string `mapstructure:"db_path"`

	// Runner settings
	BatchSize int           `mapstructure:"batch_size"`
	ItemDelay time.Duration `mapstructure:"item_delay"`

	// Scoring
	WeightsPath string `mapstructure:"weights_path"`

	// Similarity
	DedupeThreshold float64 `mapstructure:"dedupe_threshold"`
	RedisAddr       string  `mapstructure:"redis_addr"` // empty = lexical only
	RedisPassword   string  `mapstructure:"redis_password"`
	RedisDB         int     `mapstructure:"redis_db"`

	// Logging
	LogFile string `mapstructure:"log_file"` // empty = stdout only
	LogJSON bool   `mapstructure:"log_json"`
}

// Load reads curator.yaml from the working directory (if present) and applies
// CURATOR_* environment overrides. A missing config file is fine; a malformed
// one is a fatal configuration error.
func Load() (*Config, error) {
	v := viper.New()

	// Every key needs a default: AutomaticEnv only resolves CURATOR_* vars
	// for keys viper already knows about.
	v.SetDefault("db_path", "")
	v.SetDefault("batch_size", 10)
	v.SetDefault("item_delay", 2*time.Second)
	v.SetDefault("weights_path", "")
	v.SetDefault("dedupe_threshold", 0.6)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_file", "")
	v.SetDefault("log_json", false)

	v.SetConfigName("curator")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(".curator")

	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.DedupeThreshold <= 0 || cfg.DedupeThreshold > 1 {
		return nil, fmt.Errorf("dedupe_threshold must be in (0,1] (got %.2f)", cfg.DedupeThreshold)
	}

	return &cfg, nil
}
