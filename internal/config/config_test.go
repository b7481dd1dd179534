package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.UpdateRetryAttempts)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, 100, cfg.SweepBatchSize)
	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 5*time.Second, cfg.SyncTimeout)
	assert.Equal(t, "secret", cfg.Vault.MountPath)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("SYNC_PROVIDERS", "vault, aws")
	t.Setenv("SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("VAULT_ADDRESS", "https://vault.internal:8200")

	cfg := Load()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, []string{"vault", "aws"}, cfg.SyncProviderNames())
	assert.Equal(t, "*/5 * * * *", cfg.SweepSchedule)
	assert.Equal(t, "https://vault.internal:8200", cfg.Vault.Address)
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"warn", "release"},
		{"error", "release"},
		{"unknown", "release"},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.logLevel}
		assert.Equal(t, tt.expected, cfg.GetGinMode())
	}
}

func TestSyncProviderNames(t *testing.T) {
	cfg := &Config{SyncProviders: ""}
	assert.Nil(t, cfg.SyncProviderNames())

	cfg = &Config{SyncProviders: "vault,,  aws "}
	assert.Equal(t, []string{"vault", "aws"}, cfg.SyncProviderNames())
}
