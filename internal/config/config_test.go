package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[host]
command = "agent-host"
args = ["--stdio"]

[display]
compact_approved = false

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "agent-host", cfg.Host.Command)
	assert.Equal(t, []string{"--stdio"}, cfg.Host.Args)
	assert.False(t, cfg.Display.CompactApproved)
	assert.True(t, cfg.Display.Markdown, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "attempt_completion", cfg.Completion.ToolName)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "completion:\n  tool_name: finish\n  result_field: summary\nhistory:\n  limit: 20\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "finish", cfg.Completion.ToolName)
	assert.Equal(t, "summary", cfg.Completion.ResultField)
	assert.Equal(t, 20, cfg.History.Limit)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"host":{"socket":"/tmp/h.sock"},"display":{"mode":"architect"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.sock", cfg.Host.Socket)
	assert.Equal(t, "architect", cfg.Display.Mode)
}

func TestLoadDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[host\nsocket = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode TOML")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIDECAR_SOCKET", "/run/agent.sock")
	t.Setenv("SIDECAR_HOST_COMMAND", "my-host")
	t.Setenv("SIDECAR_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "/run/agent.sock", cfg.Host.Socket)
	assert.Equal(t, "my-host", cfg.Host.Command)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty completion tool", func(c *Config) { c.Completion.ToolName = "" }},
		{"empty result field", func(c *Config) { c.Completion.ResultField = "" }},
		{"negative history limit", func(c *Config) { c.History.Limit = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[log]\nlevel = \"chatty\"\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[display]\nmarkdown = true\n")

	initial, err := Load(path)
	require.NoError(t, err)
	w, err := Watch(path, initial)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "[display]\nmarkdown = false\n")

	select {
	case cfg := <-w.Changes():
		assert.False(t, cfg.Display.Markdown)
		assert.Same(t, cfg, w.Current())
	case err := <-w.Errors():
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatchKeepsLastGoodConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "")

	initial, err := Load(path)
	require.NoError(t, err)
	w, err := Watch(path, initial)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "[log]\nlevel = \"chatty\"\n")

	select {
	case err := <-w.Errors():
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Same(t, initial, w.Current())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error within 5s")
	}
}
