package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coopbank")
	t.Setenv("AUTH0_DOMAIN", "coopbank.eu.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.coopbank.test")
	for _, key := range []string{"PORT", "ACCOUNT_STORE", "COREBANK_BASE_URL", "COREBANK_TIMEOUT", "CLOSURE_RATE_LIMIT", "S3_BUCKET", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AccountStorePostgres, cfg.AccountStore)
	assert.Equal(t, 15*time.Second, cfg.CoreBank.Timeout)
	assert.Equal(t, 30, cfg.ClosureRateLimit)
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoad_CoreBankRequiresBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCOUNT_STORE", "corebank")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("COREBANK_BASE_URL", "https://core.coopbank.test/api/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AccountStoreCoreBank, cfg.AccountStore)
	assert.Equal(t, "https://core.coopbank.test/api", cfg.CoreBank.BaseURL)
}

func TestLoad_UnknownAccountStore(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCOUNT_STORE", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COREBANK_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLOSURE_RATE_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}
