package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REPORT_TIMEZONE", "CHECKOUT_MAX_RETRIES", "SEED_CATALOG", "DATABASE_URL", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 3, cfg.CheckoutMaxRetries)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.DatabaseURL)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CHECKOUT_MAX_RETRIES", "5")
	t.Setenv("SEED_CATALOG", "false")
	t.Setenv("REPORT_TIMEZONE", "Asia/Kolkata")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5, cfg.CheckoutMaxRetries)
	assert.False(t, cfg.SeedCatalog)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLocationRejectsUnknownZone(t *testing.T) {
	_, err := Config{ReportTimezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
