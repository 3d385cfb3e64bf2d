package daemonconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 600, cfg.Daemon.IdleShutdownSeconds)
	require.Equal(t, "tracey", cfg.Daemon.AppName)
	require.Equal(t, 600*time.Second, cfg.IdleShutdown())
}

func TestLoadFromExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceyd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"

[daemon]
idle_shutdown_seconds = 120
app_name = "myapp"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 120, cfg.Daemon.IdleShutdownSeconds)
	require.Equal(t, "myapp", cfg.Daemon.AppName)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceyd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"
`), 0o644))

	t.Setenv("TRACEY_LOG_LEVEL", "error")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "error", cfg.Log.Level)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceyd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "verbose"
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveIdleShutdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceyd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[daemon]
idle_shutdown_seconds = 0
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
