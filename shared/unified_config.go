package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all tuning parameters for the application
type UnifiedConfiguration struct {
	Market   ServiceConfig  `json:"market"`
	Chart    ServiceConfig  `json:"chart"`
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServiceConfig holds upstream provider client configuration
type ServiceConfig struct {
	BaseURL            string        `json:"base_url"`
	APIKeyHeader       string        `json:"api_key_header"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	EnableMetrics      bool          `json:"enable_metrics"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// CacheConfig holds the coin index cache configuration
type CacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Market:   NewCoinMarketCapConfig(),
		Chart:    NewCoinGeckoConfig(),
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 1 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "coin-backend",
		},
	}
}

// NewCoinMarketCapConfig returns the CoinMarketCap client configuration.
// The 10s timeout bounds request latency; the original deployment had no
// timeout at all and a slow provider call held the request open.
func NewCoinMarketCapConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:            "https://pro-api.coinmarketcap.com/v1/cryptocurrency",
		APIKeyHeader:       "X-CMC_PRO_API_KEY",
		HTTPRequestTimeout: 10 * time.Second,
		RequestRateLimit:   500 * time.Millisecond,
		MaxRetryAttempts:   2,
		EnableMetrics:      true,
	}
}

// NewCoinGeckoConfig returns the CoinGecko client configuration. The public
// API needs no key but throttles harder than CMC.
func NewCoinGeckoConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:            "https://api.coingecko.com/api/v3",
		APIKeyHeader:       "",
		HTTPRequestTimeout: 10 * time.Second,
		RequestRateLimit:   1 * time.Second,
		MaxRetryAttempts:   2,
		EnableMetrics:      true,
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Market.BaseURL == "" {
		c.Market = defaults.Market
		logger.Debug("Applied default Market config")
	}

	if c.Chart.BaseURL == "" {
		c.Chart = defaults.Chart
		logger.Debug("Applied default Chart config")
	}

	if c.Market.HTTPRequestTimeout <= 0 {
		c.Market.HTTPRequestTimeout = defaults.Market.HTTPRequestTimeout
		logger.Debug("Applied default Market.HTTPRequestTimeout")
	}

	if c.Chart.HTTPRequestTimeout <= 0 {
		c.Chart.HTTPRequestTimeout = defaults.Chart.HTTPRequestTimeout
		logger.Debug("Applied default Chart.HTTPRequestTimeout")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaults.Cache.TTL
		logger.Debug("Applied default Cache.TTL")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}
