package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cryptodash/coin-backend/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort    string
	DatabaseURL   string
	JWTSecret     string
	CMCAPIKey     string
	CMCAPIKey2    string
	CacheTTLHours string
	LogLevel      string
	Tuning        *shared.UnifiedConfiguration
}

// GetCacheTTL returns the coin index cache TTL. The CACHE_TTL_HOURS env
// variable wins when set; otherwise the tuning configuration applies.
// The index holds the full provider id map (~10k coins), so an hour of
// staleness is an accepted trade against provider credits.
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLHours == "" {
		if c.Tuning != nil {
			return c.Tuning.Cache.TTL
		}
		return 1 * time.Hour
	}

	hours, err := strconv.Atoi(c.CacheTTLHours)
	if err != nil {
		logrus.Warnf("Invalid CACHE_TTL_HOURS value: %s, using default 1 hour", c.CacheTTLHours)
		return 1 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

// SecondaryAPIKey returns the key used for detail/favorite calls. The two
// keys split credit consumption between the list endpoints and the
// per-user endpoints; with only one key configured both share it.
func (c *Config) SecondaryAPIKey() string {
	if c.CMCAPIKey2 != "" {
		return c.CMCAPIKey2
	}
	return c.CMCAPIKey
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "3000"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CMCAPIKey:     getEnv("CMC_API_KEY", ""),
		CMCAPIKey2:    getEnv("CMC_API_KEY_2", ""),
		CacheTTLHours: getEnv("CACHE_TTL_HOURS", ""),
		LogLevel:      getEnv("LOG_LEVEL", ""),
		Tuning:        loadTuningConfig(),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = cfg.Tuning.Logging.Level
	}

	if cfg.JWTSecret == "" {
		logrus.Warn("JWT_SECRET not set, tokens will be signed with an insecure development secret")
		cfg.JWTSecret = "change_this_to_a_secure_random_string_in_production"
	}

	if cfg.CMCAPIKey == "" {
		logrus.Warn("CMC_API_KEY not set, CoinMarketCap requests will be rejected upstream")
	}

	return cfg
}

// loadTuningConfig returns the provider/database/cache tuning parameters:
// the defaults, overridden by the JSON file named in TUNING_CONFIG_PATH
// when one is configured. A missing or unreadable file falls back to the
// defaults rather than failing the boot.
func loadTuningConfig() *shared.UnifiedConfiguration {
	tuning := shared.NewDefaultUnifiedConfiguration()

	path := getEnv("TUNING_CONFIG_PATH", "")
	if path == "" {
		return tuning
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Warnf("Failed to read tuning config %s, using defaults: %v", path, err)
		return tuning
	}

	if err := tuning.LoadFromJSON(data); err != nil {
		logrus.Warnf("Failed to parse tuning config %s, using defaults: %v", path, err)
		return shared.NewDefaultUnifiedConfiguration()
	}

	logrus.WithField("path", path).Info("Loaded tuning configuration overrides")
	return tuning
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
