// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Crawler, Cache, Index, Redis, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG cache sub-directory.
const AppName = "minecrawler"

// Config is the top-level application configuration.
type Config struct {
	Crawler CrawlerConfig `yaml:"crawler"`
	Cache   CacheConfig   `yaml:"cache"`
	Index   IndexConfig   `yaml:"index"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CrawlerConfig controls page fetching and traversal.
type CrawlerConfig struct {
	FetchTimeout       time.Duration `yaml:"fetchTimeout"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes"`
	UserAgent          string        `yaml:"userAgent"`
	Workers            int           `yaml:"workers"`
	Dedupe             bool          `yaml:"dedupe"`
	SkipMalformedLinks bool          `yaml:"skipMalformedLinks"`
}

// CacheConfig locates the crawl cache and sets its time-to-live.
type CacheConfig struct {
	Dir      string        `yaml:"dir"`
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

// IndexConfig holds analyzer and ranking settings handed to every index
// engine instance.
type IndexConfig struct {
	DefaultLimit int     `yaml:"defaultLimit"`
	TitleBoost   float64 `yaml:"titleBoost"`
	BodyBoost    float64 `yaml:"bodyBoost"`
	Stem         bool    `yaml:"stem"`
	StopWords    bool    `yaml:"stopWords"`
}

// RedisConfig holds the optional query-result cache connection.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration: a 2s fetch timeout and a one
// hour cache TTL with the cache rooted in the XDG cache directory.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			FetchTimeout: 2000 * time.Millisecond,
			MaxBodyBytes: 1 << 20,
			UserAgent:    "minecrawler/1.0",
			Workers:      1,
		},
		Cache: CacheConfig{
			Dir: filepath.Join(xdg.CacheHome, AppName),
			TTL: time.Hour,
		},
		Index: IndexConfig{
			DefaultLimit: 10,
			TitleBoost:   2.0,
			BodyBoost:    1.0,
			Stem:         true,
			StopWords:    true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate rejects settings the core cannot run with.
func (c *Config) Validate() error {
	if c.Crawler.FetchTimeout <= 0 {
		return fmt.Errorf("crawler.fetchTimeout must be positive, got %v", c.Crawler.FetchTimeout)
	}
	if c.Crawler.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawler.maxBodyBytes must be positive, got %d", c.Crawler.MaxBodyBytes)
	}
	if c.Crawler.Workers < 1 {
		return fmt.Errorf("crawler.workers must be at least 1, got %d", c.Crawler.Workers)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if !c.Cache.Disabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required unless the cache is disabled")
	}
	if c.Index.DefaultLimit < 1 {
		return fmt.Errorf("index.defaultLimit must be at least 1, got %d", c.Index.DefaultLimit)
	}
	if c.Index.TitleBoost <= 0 || c.Index.BodyBoost <= 0 {
		return fmt.Errorf("index boosts must be positive")
	}
	return nil
}

// applyEnvOverrides reads MC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MC_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Crawler.FetchTimeout = d
		}
	}
	if v := os.Getenv("MC_CRAWLER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Crawler.Workers = n
		}
	}
	if v := os.Getenv("MC_USER_AGENT"); v != "" {
		cfg.Crawler.UserAgent = v
	}
	if v := os.Getenv("MC_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("MC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("MC_CACHE_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Disabled = b
		}
	}
	if v := os.Getenv("MC_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("MC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = port > 0
		}
	}
}
