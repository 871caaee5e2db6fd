package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":2000", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Matchmaking.WaitWindowSec)
	assert.Equal(t, 100, cfg.Fleet.MinCount)
	assert.Equal(t, 2000, cfg.Fleet.MaxCount)
	assert.Equal(t, 20, cfg.Bot.MessageBudget)
	assert.Equal(t, 12, cfg.Bot.IdleMinSec)
	assert.Equal(t, 18, cfg.Bot.IdleMaxSec)
	assert.Equal(t, "tinyllama:chat", cfg.Ollama.Model)
	assert.Equal(t, 120, cfg.Alert.CooldownSec)
	assert.NotEmpty(t, cfg.Messages.Waiting)
	assert.NotEmpty(t, cfg.Messages.Timeout)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	data := `
server:
  addr: ":9000"
matchmaking:
  wait_window_sec: 45
fleet:
  min_count: 10
  max_count: 50
bot:
  message_budget: 5
messages:
  waiting: "hold on..."
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 45, cfg.Matchmaking.WaitWindowSec)
	assert.Equal(t, 10, cfg.Fleet.MinCount)
	assert.Equal(t, 50, cfg.Fleet.MaxCount)
	assert.Equal(t, 5, cfg.Bot.MessageBudget)
	assert.Equal(t, "hold on...", cfg.Messages.Waiting)

	// Unset fields still get defaults.
	assert.Equal(t, 10, cfg.Fleet.TickSec)
	assert.Equal(t, 4, cfg.Bot.HistoryTurns)
}

func TestConfig_Validate_Consistency(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "fleet band inverted",
			mutate:  func(c *Config) { c.Fleet.MinCount = 100; c.Fleet.MaxCount = 10 },
			wantErr: "max_count",
		},
		{
			name:    "idle window inverted",
			mutate:  func(c *Config) { c.Bot.IdleMinSec = 20; c.Bot.IdleMaxSec = 10 },
			wantErr: "idle_max_sec",
		},
		{
			name:    "wait window out of range",
			mutate:  func(c *Config) { c.Matchmaking.WaitWindowSec = 0 },
			wantErr: "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("OLLAMA_HOSTS", "127.0.0.1:11434, 127.0.0.1:11435")
	t.Setenv("PORT", "8088")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1:11434", "127.0.0.1:11435"}, cfg.Ollama.Hosts)
	assert.Equal(t, ":8088", cfg.Server.Addr)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
