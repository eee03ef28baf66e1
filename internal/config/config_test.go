package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
database_url: postgres://localhost/sponsordesk
auth:
  jwt_secret: secret
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 60*time.Minute, cfg.Derivation.Interval)
	assert.Equal(t, DerivationModeLocal, cfg.Derivation.Mode)
	assert.True(t, cfg.Derivation.InitialScan)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Broker.AMQPURL)
	assert.Equal(t, 4, cfg.Temporal.MaxConcurrentScans)
}

func TestLoadFromEnvironmentOverrides(t *testing.T) {
	dir := writeConfig(t, `
database_url: postgres://localhost/sponsordesk
auth:
  jwt_secret: from-file
derivation:
  interval: 30m
`)
	t.Setenv("SPONSORDESK_AUTH_JWT_SECRET", "from-env")
	t.Setenv("SPONSORDESK_DERIVATION_MODE", "temporal")
	t.Setenv("SPONSORDESK_TEMPORAL_MAX_CONCURRENT_SCANS", "8")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Temporal.MaxConcurrentScans)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, DerivationModeTemporal, cfg.Derivation.Mode)
	assert.Equal(t, 30*time.Minute, cfg.Derivation.Interval)
}

func TestLoadFromWithoutFileUsesEnvironment(t *testing.T) {
	t.Setenv("SPONSORDESK_DATABASE_URL", "postgres://env/sponsordesk")
	t.Setenv("SPONSORDESK_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/sponsordesk", cfg.DatabaseURL)
}

func TestLoadFromRequiresSecrets(t *testing.T) {
	dir := writeConfig(t, "database_url: postgres://localhost/sponsordesk\n")

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Config{
		DatabaseURL: "postgres://x",
		Auth:        AuthConfig{JWTSecret: "s"},
		Derivation:  DerivationConfig{Interval: time.Minute, Mode: "cron"},
	}
	assert.Error(t, cfg.Validate())
}
