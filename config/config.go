package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Primary   StoreConfig
	Secondary StoreConfig
	Feed      FeedConfig
	Cache     CacheConfig
	Sync      SyncConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// StoreConfig holds the connection settings for one storefront. Collections
// maps a series name (men, women, unisex, bestsellers) to the numeric id of
// the curated collection in that store.
type StoreConfig struct {
	Domain      string            `mapstructure:"domain"`
	Token       string            `mapstructure:"token"`
	LocationID  string            `mapstructure:"location_id"`
	Collections map[string]string `mapstructure:"collections"`
}

// Enabled reports whether this store is configured at all. The secondary
// store is optional; an empty domain means single-store mode.
func (s StoreConfig) Enabled() bool {
	return s.Domain != ""
}

// FeedConfig holds the quantity feed source settings. Source is a local CSV
// path or an http(s) URL (e.g. a published spreadsheet export).
type FeedConfig struct {
	Source       string `mapstructure:"source"`
	NumberColumn string `mapstructure:"number_column"`
	CountColumn  string `mapstructure:"count_column"`
}

// CacheConfig holds the tag cache settings
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds reconciliation run settings
type SyncConfig struct {
	PageSize      int           `mapstructure:"page_size"`
	ExcludeTitles []string      `mapstructure:"exclude_titles"`
	CallInterval  time.Duration `mapstructure:"call_interval"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scentsync/")

	// Environment variable settings
	v.SetEnvPrefix("SCENTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")

	// Store keys need defaults registered for env-only values to reach
	// Unmarshal (viper does not merge unknown env keys otherwise).
	v.SetDefault("primary.domain", "")
	v.SetDefault("primary.token", "")
	v.SetDefault("primary.location_id", "")
	v.SetDefault("primary.collections", map[string]string{})
	v.SetDefault("secondary.domain", "")
	v.SetDefault("secondary.token", "")
	v.SetDefault("secondary.location_id", "")
	v.SetDefault("secondary.collections", map[string]string{})
	v.SetDefault("feed.source", "")

	// Feed defaults: the stock sheet headers the feed has always used
	v.SetDefault("feed.number_column", "nummer:")
	v.SetDefault("feed.count_column", "Antal:")

	// Cache defaults
	v.SetDefault("cache.path", "tags_cache.db")

	// Sync defaults
	v.SetDefault("sync.page_size", 250)
	v.SetDefault("sync.exclude_titles", []string{"sample"})
	v.SetDefault("sync.call_interval", "1s")
	v.SetDefault("sync.retry_interval", "5s")
	v.SetDefault("sync.max_retries", 5)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Primary.Domain == "" {
		return fmt.Errorf("primary store domain is required (set SCENTSYNC_PRIMARY_DOMAIN)")
	}
	if config.Primary.Token == "" {
		return fmt.Errorf("primary store access token is required (set SCENTSYNC_PRIMARY_TOKEN)")
	}
	if config.Primary.LocationID == "" {
		return fmt.Errorf("primary store location id is required (set SCENTSYNC_PRIMARY_LOCATION_ID)")
	}

	if config.Secondary.Enabled() {
		if config.Secondary.Token == "" {
			return fmt.Errorf("secondary store access token is required when a secondary domain is set")
		}
		if config.Secondary.LocationID == "" {
			return fmt.Errorf("secondary store location id is required when a secondary domain is set")
		}
	}

	if config.Feed.Source == "" {
		return fmt.Errorf("feed source is required (set SCENTSYNC_FEED_SOURCE)")
	}
	if config.Cache.Path == "" {
		return fmt.Errorf("tag cache path is required (set SCENTSYNC_CACHE_PATH)")
	}

	if config.Sync.PageSize <= 0 || config.Sync.PageSize > 250 {
		return fmt.Errorf("sync page size must be between 1 and 250, got: %d", config.Sync.PageSize)
	}
	if config.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync max retries must not be negative, got: %d", config.Sync.MaxRetries)
	}

	return nil
}
