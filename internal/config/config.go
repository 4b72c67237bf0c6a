package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	AllowedOrigin      string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ActivityStream     string
	AuthSecret         string
	LogLevel           string
	LogFormat          string
	ReportTimezone     string
	CheckoutMaxRetries int
	SeedCatalog        bool
	ShutdownTimeout    time.Duration
}

// Load reads configuration from the environment. A .env file, if any, is
// expected to have been loaded into the environment already.
func Load() Config {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACTIVITY_STREAM", "retailpro:activity")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REPORT_TIMEZONE", "UTC")
	v.SetDefault("CHECKOUT_MAX_RETRIES", 3)
	v.SetDefault("SEED_CATALOG", true)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.AutomaticEnv()

	retries := v.GetInt("CHECKOUT_MAX_RETRIES")
	if retries < 0 {
		retries = 3
	}
	shutdown := v.GetDuration("SHUTDOWN_TIMEOUT")
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}

	return Config{
		Port:               v.GetString("PORT"),
		AllowedOrigin:      v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		ActivityStream:     v.GetString("ACTIVITY_STREAM"),
		AuthSecret:         strings.TrimSpace(v.GetString("AUTH_SECRET")),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		ReportTimezone:     strings.TrimSpace(v.GetString("REPORT_TIMEZONE")),
		CheckoutMaxRetries: retries,
		SeedCatalog:        v.GetBool("SEED_CATALOG"),
		ShutdownTimeout:    shutdown,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves REPORT_TIMEZONE, used for invoice years and day
// boundaries in reports.
func (c Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}
