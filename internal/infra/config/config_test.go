package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Player.PollIntervalMS)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, int64(5000), cfg.Player.SeekStepMS)
	assert.Equal(t, int64(60000), cfg.Player.LongSeekStepMS)
	assert.Equal(t, 50, cfg.Player.Volume)
	assert.Equal(t, "swap", cfg.Loop.Policy)
	assert.Equal(t, int64(100), cfg.Loop.CaptureLatencyMS)
	assert.Equal(t, "okplayer.json", cfg.Storage.SettingsPath)
	assert.Equal(t, "okplayer_history.jsonl", cfg.Storage.HistoryPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "okplayer.yaml")
	content := `player:
  poll_interval_ms: 100
  volume: 80
loop:
  policy: reject
storage:
  settings_path: /tmp/s.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Player.PollIntervalMS)
	assert.Equal(t, 80, cfg.Player.Volume)
	assert.Equal(t, "reject", cfg.Loop.Policy)
	assert.Equal(t, "/tmp/s.json", cfg.Storage.SettingsPath)
	// Untouched fields keep their defaults.
	assert.Equal(t, int64(5000), cfg.Player.SeekStepMS)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "poll interval too small",
			content: "player:\n  poll_interval_ms: 1\n",
		},
		{
			name:    "volume out of range",
			content: "player:\n  volume: 150\n",
		},
		{
			name:    "unknown loop policy",
			content: "loop:\n  policy: maybe\n",
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: loud\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "okplayer.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OKPLAYER_SETTINGS_PATH", "/tmp/env-settings.json")
	t.Setenv("OKPLAYER_HISTORY_PATH", "/tmp/env-history.jsonl")

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-settings.json", cfg.Storage.SettingsPath)
	assert.Equal(t, "/tmp/env-history.jsonl", cfg.Storage.HistoryPath)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "okplayer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
