package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "communication.sqlite3", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, 4, cfg.Dispatcher.Workers)
	assert.Equal(t, 256, cfg.Dispatcher.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COMM_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("COMM_DATABASE_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("COMM_DISPATCHER_WORKERS", "16")
	t.Setenv("COMM_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.AcquireTimeout)
	assert.Equal(t, 16, cfg.Dispatcher.Workers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("COMM_DISPATCHER_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}
