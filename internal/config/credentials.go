package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Credentials holds host-mediated chat credentials plugins may request via
// TomeHostV2.Chat, keyed by plugin name rather than by LLM provider — the
// host, not the guest, owns the actual provider/endpoint selection.
type Credentials struct {
	Plugins map[string]PluginCredential `json:"plugins"`
}

// PluginCredential holds the API key a host-mediated chat call authenticates
// with on a plugin's behalf.
type PluginCredential struct {
	APIKey string `json:"api_key"`
}

// LoadCredentials reads credentials from ~/.config/tome/credentials.json.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	creds := &Credentials{
		Plugins: make(map[string]PluginCredential),
	}

	//nolint:gosec // G304: path from validated config dir
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return creds, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, creds); err != nil {
		return nil, err
	}

	return creds, nil
}

// SaveCredentials writes credentials to ~/.config/tome/credentials.json with
// 0600 permissions.
func SaveCredentials(creds *Credentials) error {
	dir, err := EnsureDataDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, "credentials.json")
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// APIKeyFor returns the API key for a given plugin, or "" if none is set.
func (c *Credentials) APIKeyFor(plugin string) string {
	if c == nil || c.Plugins == nil {
		return ""
	}
	return c.Plugins[plugin].APIKey
}

// SetAPIKeyFor sets the API key for a given plugin.
func (c *Credentials) SetAPIKeyFor(plugin, apiKey string) {
	if c.Plugins == nil {
		c.Plugins = make(map[string]PluginCredential)
	}
	c.Plugins[plugin] = PluginCredential{APIKey: apiKey}
}

func credentialsPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}
