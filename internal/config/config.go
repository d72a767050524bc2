// Package config loads sidecar configuration from TOML, YAML or JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is the complete client configuration.
type Config struct {
	Host       HostConfig       `toml:"host" json:"host" yaml:"host"`
	Completion CompletionConfig `toml:"completion" json:"completion" yaml:"completion"`
	Display    DisplayConfig    `toml:"display" json:"display" yaml:"display"`
	History    HistoryConfig    `toml:"history" json:"history" yaml:"history"`
	Log        LogConfig        `toml:"log" json:"log" yaml:"log"`
}

// HostConfig says how to reach the agent host. When Command is set the host
// is spawned and spoken to over stdio; otherwise Socket is dialed.
type HostConfig struct {
	Socket  string   `toml:"socket" json:"socket" yaml:"socket"`
	Command string   `toml:"command" json:"command" yaml:"command"`
	Args    []string `toml:"args" json:"args" yaml:"args"`
}

// CompletionConfig names the tool call that carries a turn's final answer.
type CompletionConfig struct {
	ToolName    string `toml:"tool_name" json:"tool_name" yaml:"tool_name"`
	ResultField string `toml:"result_field" json:"result_field" yaml:"result_field"`
}

// DisplayConfig can change while the TUI runs.
type DisplayConfig struct {
	CompactApproved bool   `toml:"compact_approved" json:"compact_approved" yaml:"compact_approved"`
	Markdown        bool   `toml:"markdown" json:"markdown" yaml:"markdown"`
	Mode            string `toml:"mode" json:"mode" yaml:"mode"`
}

// HistoryConfig controls the local prompt history.
type HistoryConfig struct {
	Path  string `toml:"path" json:"path" yaml:"path"`
	Limit int    `toml:"limit" json:"limit" yaml:"limit"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	Path   string `toml:"path" json:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{ToolName: "attempt_completion", ResultField: "result"},
		Display:    DisplayConfig{CompactApproved: true, Markdown: true, Mode: "code"},
		History:    HistoryConfig{Limit: 500},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Dir returns the sidecar config directory.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "sidecar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sidecar")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config at path over the defaults. A missing file yields the
// defaults. The format follows the extension; anything else is read as TOML.
// Environment overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies SIDECAR_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SIDECAR_SOCKET"); v != "" {
		c.Host.Socket = v
	}
	if v := os.Getenv("SIDECAR_HOST_COMMAND"); v != "" {
		c.Host.Command = v
	}
	if v := os.Getenv("SIDECAR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks field values. Errors wrap ErrInvalid.
func (c *Config) Validate() error {
	var problems []string
	if c.Completion.ToolName == "" {
		problems = append(problems, "completion.tool_name is empty")
	}
	if c.Completion.ResultField == "" {
		problems = append(problems, "completion.result_field is empty")
	}
	if c.History.Limit < 0 {
		problems = append(problems, fmt.Sprintf("history.limit %d is negative", c.History.Limit))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not debug, info, warn or error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
