package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// Config is the daemon's fully-resolved configuration: file values with
// environment variables overriding, and node name falling back to hostname.
type Config struct {
	ConvexURL string `toml:"convex_url"`
	AuthToken string `toml:"auth_token"`
	NodeName  string `toml:"node_name"`
}

const (
	envConvexURL = "TINA_CONVEX_URL"
	envAuthToken = "TINA_AUTH_TOKEN"
	envNodeName  = "TINA_NODE_NAME"
)

// ConfigDir returns ~/.config/tina/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tina"), nil
}

// DataDir returns ~/.local/share/tina/ on all platforms, used for the PID
// file, lock file, and optional audit database.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "tina"), nil
}

// DefaultConfigPath returns <config-dir>/tina/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory and a default config.toml if
// one is not already present.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# tina-daemon configuration
# convex_url and auth_token are required; node_name defaults to hostname.

# convex_url = "https://example.convex.cloud"
# auth_token = "replace-me"
# node_name = ""
`

// Load reads path (if it exists), applies environment variable overrides,
// defaults node_name to the hostname when still empty, and validates the
// required fields. A missing file is not an error by itself — env vars
// alone may satisfy every required key.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, &models.ParseError{Path: path, Err: err}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv(envConvexURL); v != "" {
		cfg.ConvexURL = v
	}
	if v := os.Getenv(envAuthToken); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv(envNodeName); v != "" {
		cfg.NodeName = v
	}

	if cfg.NodeName == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve hostname for default node_name: %w", err)
		}
		cfg.NodeName = host
	}

	if cfg.ConvexURL == "" {
		return nil, &models.ConfigError{Key: "convex_url", Problem: "required but not set"}
	}
	if cfg.AuthToken == "" {
		return nil, &models.ConfigError{Key: "auth_token", Problem: "required but not set"}
	}

	return cfg, nil
}
