// Package config handles configuration loading from TOML files and
// environment variables. The core only ever consumes a merged *Config; the
// KDL and per-project script layers named in the layered-precedence design
// are produced upstream of this package and out of scope here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Editor  EditorConfig            `toml:"editor"`
	UI      UIConfig                `toml:"ui"`
	LSP     map[string]LSPConfig    `toml:"lsp"`
	Broker  BrokerConfig            `toml:"broker"`
	Plugins map[string]PluginConfig `toml:"plugins"`
	Keymap  string                  `toml:"keymap"`
}

// EditorConfig holds core editing behavior settings.
type EditorConfig struct {
	TabWidth     int  `toml:"tab_width"`
	InsertTabs   bool `toml:"insert_tabs"`
	ScrollOffset int  `toml:"scroll_offset"`
}

// TabWidthOrDefault returns the configured tab width or 4 if unset.
func (e EditorConfig) TabWidthOrDefault() int {
	if e.TabWidth <= 0 {
		return 4
	}
	return e.TabWidth
}

// UIConfig holds user-interface settings.
type UIConfig struct {
	// SyntaxTheme is the Chroma syntax highlighting theme used across the
	// editor. Defaults to "vulcan" if unset.
	SyntaxTheme string `toml:"syntax_theme"`
}

// SyntaxThemeOrDefault returns the configured syntax theme or "vulcan" if unset.
func (u UIConfig) SyntaxThemeOrDefault() string {
	if u.SyntaxTheme == "" {
		return "vulcan"
	}
	return u.SyntaxTheme
}

// LSPConfig holds the launch command for one language's language server,
// keyed by language id (e.g. "go", "rust").
type LSPConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// BrokerConfig holds settings for connecting to (or spawning) the LSP
// broker daemon.
type BrokerConfig struct {
	SocketPath string `toml:"socket_path"`
	AutoSpawn  bool   `toml:"auto_spawn"`
}

// SocketPathOrDefault returns the configured broker socket path or the
// default under the data directory if unset.
func (b BrokerConfig) SocketPathOrDefault() string {
	if b.SocketPath != "" {
		return b.SocketPath
	}
	dir, err := DataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "broker.sock")
}

// PluginConfig holds per-plugin settings, keyed by plugin name.
type PluginConfig struct {
	Path    string `toml:"path"`
	Enabled bool   `toml:"enabled"`
}

// Load reads configuration from a TOML file and applies environment
// variable overrides. A missing file is not an error: Load returns
// defaults, since tome runs fine unconfigured.
func Load(path string) (*Config, error) {
	cfg := &Config{
		LSP:     make(map[string]LSPConfig),
		Plugins: make(map[string]PluginConfig),
	}

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error
	for lang, lsp := range c.LSP {
		if lsp.Command == "" {
			errs = append(errs, fmt.Errorf("lsp.%s.command is required", lang))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"TOME_BROKER_SOCKET", func(v string) {
			if v != "" {
				cfg.Broker.SocketPath = v
			}
		}},
		{"TOME_KEYMAP", func(v string) {
			if v != "" {
				cfg.Keymap = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to tome's data directory (~/.config/tome).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tome"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
