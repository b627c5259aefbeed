package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/possync")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	// ARRANGE
	setRequiredEnv(t)

	// ACT
	cfg, err := LoadConfig()

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, DriverSQLite, cfg.LocalStoreDriver)
	assert.Equal(t, 3, cfg.MaxPushRetries)
	assert.Equal(t, time.Duration(0), cfg.RetryBackoff)
	assert.Equal(t, 15*time.Second, cfg.ConnectivityInterval)
	assert.Empty(t, cfg.SyncSchedule)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_PUSH_RETRIES", "5")
	t.Setenv("RETRY_BACKOFF", "2s")
	t.Setenv("LOCAL_STORE_DRIVER", "MEMORY")
	t.Setenv("SYNC_SCHEDULE", "@every 5m")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxPushRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, DriverMemory, cfg.LocalStoreDriver)
	assert.Equal(t, "@every 5m", cfg.SyncSchedule)
}

func TestLoadConfig_FileWithEnvPrecedence(t *testing.T) {
	// ARRANGE
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "possync.yaml")
	content := "server_port: \"9090\"\nlog_level: debug\nmax_push_retries: \"7\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	// ACT
	cfg, err := LoadConfig()

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 7, cfg.MaxPushRetries)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad expiry", map[string]string{"JWT_EXPIRY": "tomorrow"}},
		{"negative retries", map[string]string{"MAX_PUSH_RETRIES": "-1"}},
		{"unknown driver", map[string]string{"LOCAL_STORE_DRIVER": "leveldb"}},
		{"redis driver without url", map[string]string{"LOCAL_STORE_DRIVER": "redis", "REDIS_URL": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()

			assert.Error(t, err)
		})
	}
}
