package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		// Given: a config file that sets nothing
		path := writeConfig(t, "log-level: debug\n")

		// When: it is loaded
		conf, err := Load(path)

		// Then: every default is applied
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "9091", conf.SocketPort)
		assert.Equal(t, StorageRedis, conf.Storage)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 3, conf.Move.MaxAttempts)
		assert.Equal(t, 100*time.Millisecond, conf.Move.RetryDelay)
		assert.Equal(t, 24*time.Hour, conf.ProcessedRequests.Retention)
		assert.Equal(t, "0 0 0 * * *", conf.ProcessedRequests.CleanupCron)
	})

	t.Run("Values from file", func(t *testing.T) {
		path := writeConfig(t, `
storage: sqlite
sqlite-storage-path: /tmp/games.db
move:
  max-attempts: 5
  retry-delay: 20ms
processed-requests:
  retention: 1h
`)

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, StorageSQLite, conf.Storage)
		assert.Equal(t, "/tmp/games.db", conf.SQLiteStoragePath)
		assert.Equal(t, 5, conf.Move.MaxAttempts)
		assert.Equal(t, 20*time.Millisecond, conf.Move.RetryDelay)
		assert.Equal(t, time.Hour, conf.ProcessedRequests.Retention)
	})

	t.Run("Unknown storage", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage: mongo\n"))
		require.Error(t, err)
	})

	t.Run("Negative attempts", func(t *testing.T) {
		_, err := Load(writeConfig(t, "move:\n  max-attempts: -1\n"))
		require.Error(t, err)
	})

	t.Run("MustLoad panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
