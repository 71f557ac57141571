package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8000/ws", config.Server.URL)
	assert.Equal(t, 5, config.Reconnect.MaxRetries)
	assert.Equal(t, time.Second, config.Reconnect.BaseDelay)
	assert.Equal(t, 4, config.Game.TotalRounds)
	assert.Equal(t, "DRAWSYNC_TOKEN", config.Credentials.TokenEnv)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: nats://localhost:4222
  command_subject: game.commands
reconnect:
  max_retries: 2
  base_delay: 250ms
room:
  code: ABC123
game:
  total_rounds: 6
`), 0o600))

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", config.Server.URL)
	assert.Equal(t, "game.commands", config.Server.CommandSubject)
	assert.Equal(t, "drawsync.events", config.Server.EventSubject)
	assert.Equal(t, 2, config.Reconnect.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, config.Reconnect.BaseDelay)
	assert.Equal(t, 10*time.Second, config.Server.DialTimeout)

	sc := config.sessionConfig()
	assert.Equal(t, "ABC123", sc.RoomCode)
	assert.Equal(t, 6, sc.Game.TotalRounds)
	assert.Equal(t, 2, sc.Conn.MaxRetries)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DRAWSYNC_SERVER_URL", "tcp://localhost:9000")
	t.Setenv("DRAWSYNC_ROOM_ID", "77")
	t.Setenv("DRAWSYNC_BASE_DELAY", "2s")
	t.Setenv("DRAWSYNC_MAX_RETRIES", "not-a-number")

	config, err := loadConfig("")
	require.NoError(t, err)
	config.applyEnv()

	assert.Equal(t, "tcp://localhost:9000", config.transportConfig().URL)
	assert.Equal(t, int64(77), config.Room.ID)
	assert.Equal(t, 2*time.Second, config.Reconnect.BaseDelay)
	assert.Equal(t, 5, config.Reconnect.MaxRetries)
}
