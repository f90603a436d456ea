// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEAL_ESTIMATOR_USDA_API_KEY.
const EnvPrefix = "MEAL_ESTIMATOR"

// Config holds server configuration.
type Config struct {
	Host   string
	Port   int
	DBPath string

	USDA USDA

	// FoodCacheTTL bounds how long looked-up nutrients are reused.
	FoodCacheTTL time.Duration
	// MealCacheTTL bounds how long an estimate is returned for a repeated image hash.
	MealCacheTTL time.Duration

	// PortionPolicy is "default" or "strict".
	PortionPolicy string

	Log Log
}

type USDA struct {
	APIKey        string
	BaseURL       string
	RatePerSecond float64
}

type Log struct {
	Level      string
	File       string
	Production bool
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("address", "")
	v.SetDefault("port", 8011)
	v.SetDefault("db-path", "/data/meal-estimator.db")
	v.SetDefault("usda.api-key", "")
	v.SetDefault("usda.base-url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("usda.rate-per-second", 5.0)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("meal-cache.ttl", 24*time.Hour)
	v.SetDefault("portion.policy", "default")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.production", false)
}

// Load resolves the configuration from defaults, an optional config file,
// environment variables and any flags already bound to v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", v.ConfigFileUsed())
		}
	}

	// address is an alias for host
	host := v.GetString("host")
	if addr := strings.TrimSpace(v.GetString("address")); addr != "" {
		host = addr
	}

	cfg := Config{
		Host:   host,
		Port:   v.GetInt("port"),
		DBPath: v.GetString("db-path"),
		USDA: USDA{
			APIKey:        v.GetString("usda.api-key"),
			BaseURL:       v.GetString("usda.base-url"),
			RatePerSecond: v.GetFloat64("usda.rate-per-second"),
		},
		FoodCacheTTL:  v.GetDuration("cache.ttl"),
		MealCacheTTL:  v.GetDuration("meal-cache.ttl"),
		PortionPolicy: strings.ToLower(strings.TrimSpace(v.GetString("portion.policy"))),
		Log: Log{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			Production: v.GetBool("log.production"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db-path is required")
	}
	if c.FoodCacheTTL <= 0 {
		return errors.Errorf("cache.ttl must be positive, got %s", c.FoodCacheTTL)
	}
	if c.MealCacheTTL <= 0 {
		return errors.Errorf("meal-cache.ttl must be positive, got %s", c.MealCacheTTL)
	}
	switch c.PortionPolicy {
	case "default", "strict":
	default:
		return errors.Errorf("invalid portion.policy %q (expected default|strict)", c.PortionPolicy)
	}
	return nil
}
