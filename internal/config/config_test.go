package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("ARCA_SECRET_KEY", "sk_test")
	t.Setenv("ARCA_WEBHOOK_SECRET", "whsec_test")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "fee_payment_service", cfg.Database.Database)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, "env", cfg.Secrets.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.StaleSweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.StaleAfter)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.OverdueInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFromEnv_RequiresDBPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("ARCA_SECRET_KEY", "sk_test")
	t.Setenv("ARCA_WEBHOOK_SECRET", "whsec_test")

	_, err := LoadFromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoadFromEnv_RequiresAGateway(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("ARCA_SECRET_KEY", "")
	t.Setenv("ARCA_WEBHOOK_SECRET", "")
	t.Setenv("FLW_PUBLIC_KEY", "")
	t.Setenv("FLW_SECRET_KEY", "")

	_, err := LoadFromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway")
}

func TestLoadFromEnv_FlutterwaveOnly(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("ARCA_SECRET_KEY", "")
	t.Setenv("ARCA_WEBHOOK_SECRET", "")
	t.Setenv("FLW_PUBLIC_KEY", "FLWPUBK_TEST")
	t.Setenv("FLW_SECRET_KEY", "FLWSECK_TEST")

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.False(t, cfg.Arca.Configured())
	assert.True(t, cfg.Flutterwave.Configured())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("STALE_AFTER", "45m")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Jobs.StaleAfter)
	assert.True(t, cfg.Logger.Development)
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "fees",
		Password: "secret",
		Database: "fee_payment_service",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=fees password=secret dbname=fee_payment_service sslmode=require",
		db.ConnectionString())
}
