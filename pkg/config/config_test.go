package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"livemon/pkg/config"

	"github.com/stretchr/testify/assert"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_UsesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load("non-existent-config.yaml")
	assert.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, time.Second, cfg.Metrics.TickInterval)
	assert.Equal(t, time.Minute, cfg.Metrics.RateWindow)
	assert.Equal(t, 300, cfg.Metrics.HistoryCapacity)
	assert.Equal(t, 64, cfg.Hub.ObserverQueueSize)
	assert.True(t, cfg.Simulator.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_LoadsFromYAMLAndAppliesEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
server:
  address: ":9000"

metrics:
  tick_interval: 2s
  rate_window: 5m
  history_capacity: 50

alerts:
  disconnect_rate_per_minute: 10
  max_participants: 200

simulator:
  enabled: false
`)

	t.Setenv("LIVEMON_SERVER_ADDRESS", ":9999")
	t.Setenv("LIVEMON_LIVEKIT_API_KEY", "env-key")
	t.Setenv("LIVEMON_LIVEKIT_API_SECRET", "env-secret")

	cfg, err := config.Load(path)
	assert.NoError(t, err)

	// env beats file
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "env-key", cfg.LiveKit.APIKey)
	assert.Equal(t, "env-secret", cfg.LiveKit.APISecret)

	// file beats defaults
	assert.Equal(t, 2*time.Second, cfg.Metrics.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.Metrics.RateWindow)
	assert.Equal(t, 50, cfg.Metrics.HistoryCapacity)
	assert.Equal(t, float64(10), cfg.Alerts.DisconnectRatePerMinute)
	assert.Equal(t, 200, cfg.Alerts.MaxParticipants)
	assert.False(t, cfg.Simulator.Enabled)

	// untouched values keep defaults
	assert.Equal(t, 30*time.Second, cfg.Hub.HeartbeatInterval)
	assert.Equal(t, 20, cfg.Alerts.ResolvedRetention)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, `
metrics:
  history_capacity: -1
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, config.DefaultConfig().Validate())
}
