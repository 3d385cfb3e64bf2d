// Package daemonconfig holds process-level daemon settings: logging,
// socket and idle-shutdown tuning, and the workspace config file path.
// This is distinct from internal/styxconfig, which parses the
// spec/impl traceability grammar itself.
//
// Precedence: environment variables > config file > defaults.
package daemonconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon process settings.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Daemon   DaemonConfig   `toml:"daemon"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DaemonConfig controls socket lifecycle behavior.
type DaemonConfig struct {
	// IdleShutdownSeconds is how long the daemon waits with zero active
	// connections before removing its socket and exiting.
	IdleShutdownSeconds int `toml:"idle_shutdown_seconds"`
	// AppName names the .config/<app>/ directory used for deprecated-
	// config detection and the workspace config file's own directory.
	AppName string `toml:"app_name"`
}

// WorkspaceConfig names the workspace config file's path override.
type WorkspaceConfig struct {
	ConfigPath string `toml:"config_path"`
}

// Load builds a Config from defaults, an optional TOML file, then
// environment variables (highest precedence).
func Load(explicitPath string) (*Config, error) {
	cfg := &Config{
		Log:    LogConfig{Level: "info"},
		Daemon: DaemonConfig{IdleShutdownSeconds: 600, AppName: "tracey"},
	}

	if err := cfg.loadFile(explicitPath); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(explicit string) error {
	path := resolveConfigPath(explicit)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading daemon config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("TRACEY_DAEMON_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("traceyd.toml"); err == nil {
		return "traceyd.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/tracey/traceyd.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("TRACEY_LOG_LEVEL", &c.Log.Level)
	envOverride("TRACEY_APP_NAME", &c.Daemon.AppName)
	envOverride("TRACEY_WORKSPACE_CONFIG", &c.Workspace.ConfigPath)
	if v := os.Getenv("TRACEY_IDLE_SHUTDOWN_SECONDS"); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			c.Daemon.IdleShutdownSeconds = secs
		}
	}
}

// Validate checks required invariants.
func (c *Config) Validate() error {
	if c.Daemon.IdleShutdownSeconds <= 0 {
		return fmt.Errorf("daemon.idle_shutdown_seconds must be positive")
	}
	if c.Daemon.AppName == "" {
		return fmt.Errorf("daemon.app_name must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	return nil
}

// IdleShutdown returns the idle-shutdown threshold as a time.Duration.
func (c *Config) IdleShutdown() time.Duration {
	return time.Duration(c.Daemon.IdleShutdownSeconds) * time.Second
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
