// Package config loads the estimator configuration from an optional YAML
// file, .env files and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"shopfloor-estimator/internal/db"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	defaultAddr         = ":8080"
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultCacheSize    = 256
	defaultCacheTTL     = 30 * time.Second
	defaultLogLevel     = "info"
)

// Config is the complete estimator configuration.
type Config struct {
	Database db.Config     `yaml:"database"`
	Server   ServerConfig  `yaml:"server"`
	Cache    CacheConfig   `yaml:"cache"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Debug        bool          `yaml:"debug"`
}

// CacheConfig configures the suggestion result cache. Size 0 disables it.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads path when it is non-empty, then applies .env files and
// environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{Cache: CacheConfig{Size: -1}}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Database.ApplyEnv()
	c.Server.Addr = getEnv("ESTIMATOR_ADDR", c.Server.Addr)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	if v := os.Getenv("ESTIMATOR_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse ESTIMATOR_DEBUG: %w", err)
		}
		c.Server.Debug = b
	}
	if v := os.Getenv("ESTIMATOR_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ESTIMATOR_CACHE_SIZE: %w", err)
		}
		c.Cache.Size = n
	}
	if v := os.Getenv("ESTIMATOR_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ESTIMATOR_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	return nil
}

// setDefaults applies default values to the config. A cache size left at
// the -1 sentinel gets the default; an explicit 0 keeps caching off.
func (c *Config) setDefaults() {
	c.Database.SetDefaults()
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = defaultWriteTimeout
	}
	if c.Cache.Size < 0 {
		c.Cache.Size = defaultCacheSize
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
