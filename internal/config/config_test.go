package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "10.00", cfg.Booking.BookingFee)
	assert.Equal(t, 30, cfg.Booking.SlotGranularityMinutes)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, 3, cfg.Outbox.RetryAttempts)
	assert.Equal(t, 10*time.Minute, cfg.PayFast.DedupTTL)
	assert.True(t, cfg.PayFast.Sandbox)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_SecretsFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_PASSWORD", "pg-pass")
	t.Setenv("PAYFAST_PASSPHRASE", "jt7NOE43FZPn")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "pg-pass", cfg.Database.Password)
	assert.Equal(t, "jt7NOE43FZPn", cfg.PayFast.Passphrase)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestDatabaseDSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "medmap",
		Password: "pw",
		Name:     "medmap",
		SSLMode:  "disable",
	}.DSN()
	assert.Equal(t, "host=db port=5432 user=medmap password=pw dbname=medmap sslmode=disable", dsn)
}
