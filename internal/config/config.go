package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SupabaseConfig holds remote store connection settings
type SupabaseConfig struct {
	URL          string        `mapstructure:"url"`           // Project URL, e.g. https://xyz.supabase.co
	Key          string        `mapstructure:"key"`           // Service or anon API key
	PageSize     int           `mapstructure:"page_size"`     // Records per paginated request
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // Bound on a single table read
}

// CacheConfig holds local snapshot storage settings
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig holds the admin HTTP listener settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Supabase: SupabaseConfig{
			PageSize:     1000,
			FetchTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Dir: "cache_data",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			File:  "", // empty means stderr
			Level: "INFO",
		},
	}
}

// LoadConfig loads configuration from file and environment.
// A missing config file is fine; defaults plus env overrides apply.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/cachesync")
	viper.AddConfigPath(".")

	// Environment variable overrides, e.g. CACHESYNC_SUPABASE_URL.
	// AutomaticEnv only resolves keys viper already knows, so every
	// key is registered with its default below.
	viper.SetEnvPrefix("CACHESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("supabase.url", cfg.Supabase.URL)
	viper.SetDefault("supabase.key", cfg.Supabase.Key)
	viper.SetDefault("supabase.page_size", cfg.Supabase.PageSize)
	viper.SetDefault("supabase.fetch_timeout", cfg.Supabase.FetchTimeout)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("server.addr", cfg.Server.Addr)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// IsConfigured returns true if the remote store URL and key are set
func (c *Config) IsConfigured() bool {
	return c.Supabase.URL != "" && c.Supabase.Key != ""
}

// MetadataPath returns the path of the sync bookkeeping database.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Cache.Dir, "meta.db")
}
