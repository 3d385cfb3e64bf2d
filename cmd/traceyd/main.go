// Command traceyd runs the persistent tracey daemon for one workspace.
//
// It exposes a traceability index (rule definitions, rule references,
// forward/reverse coverage) over a Unix socket, keeping it up to date via
// a debounced file watcher.
//
// Optional environment variables:
//
//	TRACEY_LOG_LEVEL              - debug, info, warn, error (default: info)
//	TRACEY_APP_NAME               - config directory name (default: tracey)
//	TRACEY_WORKSPACE_CONFIG       - workspace config file path override
//	TRACEY_IDLE_SHUTDOWN_SECONDS  - seconds with no connections before exit
//	TRACEY_DAEMON_CONFIG          - path to this process's own TOML config
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tracey/internal/daemon"
	"tracey/internal/daemonconfig"
	"tracey/internal/engine"
	"tracey/internal/styxconfig"
	"tracey/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "traceyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var daemonConfigPath string
	flag.StringVar(&daemonConfigPath, "config", "", "path to this daemon's own TOML config")
	projectRoot := flag.String("root", "", "workspace root (default: current directory)")
	flag.Parse()

	root := *projectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	cfg, err := daemonconfig.Load(daemonConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	workspaceConfigPath := cfg.Workspace.ConfigPath
	if workspaceConfigPath == "" {
		workspaceConfigPath = filepath.Join(root, ".config", cfg.Daemon.AppName, "config.styx")
	}

	logger.Info("starting tracey daemon", "root", root, "config", workspaceConfigPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if msg := styxconfig.CheckDeprecated(root, cfg.Daemon.AppName); msg != "" {
		logger.Warn(msg)
	}

	eng, err := engine.New(root, workspaceConfigPath, cfg.Daemon.AppName, logger)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	fw, err := watcher.New(root, workspaceConfigPath, logger)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer fw.Close()
	go fw.Run()
	go runRebuildLoop(ctx, eng, fw, logger)

	d := daemon.New(root, eng, cfg.IdleShutdown(), logger)
	return d.Run(ctx.Done())
}

func runRebuildLoop(ctx context.Context, eng *engine.Engine, fw *watcher.Watcher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-fw.Changes():
			if !ok {
				return
			}
			if _, _, err := eng.RebuildWithChanges(changed); err != nil {
				logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
