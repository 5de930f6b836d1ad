package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vibealong.yaml")
	data := `logging:
  level: debug
server:
  port: 9090
sequencer:
  tick_interval: 50ms
store:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 50*time.Millisecond, cfg.Sequencer.TickInterval)
	require.Equal(t, BackendMemory, cfg.Store.Backend)
	require.Equal(t, 8081, cfg.Server.GRPCPort, "unset keys keep defaults")
	require.Equal(t, 15*time.Minute, cfg.Server.SessionIdleTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vibealong.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("VIBEALONG_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"bad theme", func(c *Config) { c.TUI.Theme = "neon" }},
		{"zero tick", func(c *Config) { c.Sequencer.TickInterval = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no sessions", func(c *Config) { c.Server.MaxSessions = 0 }},
		{"no idle timeout", func(c *Config) { c.Server.SessionIdleTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
