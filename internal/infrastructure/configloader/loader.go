package configloader

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither the -config flag nor CONFIG_PATH is set.
const DefaultPath = "config/config.yml"

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
	IdleTimeout  int    `yaml:"idleTimeout"`  // seconds
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file"`
}

// StooqConfig holds the configuration of the equity quote provider.
type StooqConfig struct {
	BaseURL              string `yaml:"baseURL"`
	Market               string `yaml:"market"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RequestsPerMinute    int    `yaml:"requestsPerMinute"`
	Burst                int    `yaml:"burst"`
}

// CoinGeckoConfig holds the configuration of the crypto price provider.
type CoinGeckoConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	VsCurrency           string `yaml:"vsCurrency"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RequestsPerMinute    int    `yaml:"requestsPerMinute"`
	Burst                int    `yaml:"burst"`
}

// AggregatorConfig bounds the price fan-out.
type AggregatorConfig struct {
	ProviderTimeoutMillis int64 `yaml:"providerTimeoutMillis"`
}

// PriceCacheConfig controls the in-memory last-known price table.
type PriceCacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Stooq      StooqConfig      `yaml:"stooq"`
	CoinGecko  CoinGeckoConfig  `yaml:"coinGecko"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	PriceCache PriceCacheConfig `yaml:"priceCache"`
	Storage    StorageConfig    `yaml:"storage"`

	// CryptoAssets adds or overrides ticker -> CoinGecko id entries.
	CryptoAssets map[string]string `yaml:"cryptoAssets"`
}

// ProviderTimeout returns the per-provider deadline of one aggregation.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Aggregator.ProviderTimeoutMillis) * time.Millisecond
}

// PriceCacheTTL returns how long a refreshed price table stays in memory.
func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.PriceCache.TTLMinutes) * time.Minute
}

// ResolvePath picks the config file: an explicit flag value, then CONFIG_PATH,
// then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg, false)
	return &cfg
}

// Load reads the YAML configuration file from the given path and fills in
// defaults for everything left unset.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg, true)

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config, verbose bool) {
	note := func(format string, args ...any) {
		if verbose {
			logrus.Infof(format, args...)
		}
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		note("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Stooq.BaseURL == "" {
		cfg.Stooq.BaseURL = "https://stooq.com"
		note("Stooq.BaseURL not set, defaulting to %s", cfg.Stooq.BaseURL)
	}
	if cfg.Stooq.Market == "" {
		cfg.Stooq.Market = "us"
	}
	if cfg.Stooq.RequestTimeoutMillis <= 0 {
		cfg.Stooq.RequestTimeoutMillis = 10000
		note("Stooq.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Stooq.RequestTimeoutMillis)
	}
	if cfg.Stooq.RequestsPerMinute <= 0 {
		cfg.Stooq.RequestsPerMinute = 30
	}
	if cfg.Stooq.Burst <= 0 {
		cfg.Stooq.Burst = 1
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
		note("CoinGecko.BaseURL not set, defaulting to %s", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.VsCurrency == "" {
		cfg.CoinGecko.VsCurrency = "usd"
	}
	if cfg.CoinGecko.RequestTimeoutMillis <= 0 {
		cfg.CoinGecko.RequestTimeoutMillis = 10000
		note("CoinGecko.RequestTimeoutMillis not set, defaulting to %d ms", cfg.CoinGecko.RequestTimeoutMillis)
	}
	if cfg.CoinGecko.RequestsPerMinute <= 0 {
		cfg.CoinGecko.RequestsPerMinute = 10
	}
	if cfg.CoinGecko.Burst <= 0 {
		cfg.CoinGecko.Burst = 1
	}

	if cfg.Aggregator.ProviderTimeoutMillis <= 0 {
		cfg.Aggregator.ProviderTimeoutMillis = 10000
		note("Aggregator.ProviderTimeoutMillis not set, defaulting to %d ms", cfg.Aggregator.ProviderTimeoutMillis)
	}
	if cfg.PriceCache.TTLMinutes <= 0 {
		cfg.PriceCache.TTLMinutes = 60
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/tracker.db"
		note("Storage.Path not set, defaulting to %s", cfg.Storage.Path)
	}

	for ticker, id := range cfg.CryptoAssets {
		if id == "" {
			logrus.Warnf("Crypto asset %q has an empty CoinGecko id and will be ignored", ticker)
		}
	}
}
