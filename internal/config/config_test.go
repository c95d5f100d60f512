package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
  allowed_origins: ["http://localhost:5500", "https://*.netlify.app"]
redis:
  addr: localhost:6379
  db: 2
rooms:
  max_age: 30m
  sweep_interval: 1m
gateway:
  messages_per_second: 5
  burst: 10
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5500", "https://*.netlify.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "30m", cfg.Rooms.MaxAge)
	assert.Equal(t, 5.0, cfg.Gateway.MessagesPerSecond)
	assert.Equal(t, 10, cfg.Gateway.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback time.Duration
		want     time.Duration
	}{
		{"empty uses fallback", "", time.Hour, time.Hour},
		{"valid duration", "90s", time.Hour, 90 * time.Second},
		{"garbage uses fallback", "soon", 5 * time.Minute, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTLDuration(tt.raw, tt.fallback))
		})
	}
}
