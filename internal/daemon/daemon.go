// Package daemon owns the Unix-socket lifecycle for one workspace: the
// .tracey directory, stale-socket cleanup, the accept loop, and idle
// shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tracey/internal/engine"
	"tracey/internal/rpcserver"
	"tracey/internal/scheduler"
	"tracey/internal/wire"
)

// DefaultIdleShutdown is how long the daemon waits for a new connection
// before exiting, when the config doesn't override it.
const DefaultIdleShutdown = 600 * time.Second

const helloVersion = 1
const helloMaxPayloadSize = 1 << 20    // 1MB
const helloStreamCredit = 64 * 1024    // 64KB

// acceptPollInterval is how often the scheduled idle-shutdown check runs;
// the accept loop itself does not wake on it.
const acceptPollInterval = 30 * time.Second

// EnsureDir creates the workspace's .tracey directory and appends an
// entry to .gitignore if one isn't already present.
func EnsureDir(projectRoot string) (string, error) {
	dir := filepath.Join(projectRoot, ".tracey")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	giPath := filepath.Join(projectRoot, ".gitignore")
	existing, err := os.ReadFile(giPath)
	hasFile := err == nil
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	if hasFile && hasTraceyEntry(string(existing)) {
		return dir, nil
	}

	f, err := os.OpenFile(giPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	if hasFile && len(existing) > 0 && existing[len(existing)-1] != '\n' {
		sb.WriteByte('\n')
	}
	sb.WriteString(".tracey/\n")
	if _, err := f.WriteString(sb.String()); err != nil {
		return "", err
	}
	return dir, nil
}

func hasTraceyEntry(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case ".tracey", ".tracey/", "/.tracey/":
			return true
		}
	}
	return false
}

// SocketPath returns the daemon's control socket path for projectRoot.
func SocketPath(projectRoot string) string {
	return engine.SocketPath(projectRoot)
}

// Daemon owns one workspace's listener and idle-shutdown tracking.
type Daemon struct {
	projectRoot  string
	sockPath     string
	logger       *slog.Logger
	idleShutdown time.Duration

	service *rpcserver.Service

	activeConns atomic.Int64
	lastActive  atomic.Int64 // unix seconds

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// idleCheckJob is a scheduler.Job that requests shutdown once the daemon
// has held zero active connections for its configured idle threshold.
type idleCheckJob struct {
	d *Daemon
}

func (j idleCheckJob) Name() string { return "idle-shutdown-check" }

func (j idleCheckJob) Run(ctx context.Context) error {
	if j.d.activeConns.Load() > 0 {
		return nil
	}
	idleFor := time.Since(time.Unix(j.d.lastActive.Load(), 0))
	if idleFor >= j.d.idleShutdown {
		j.d.logger.Info("idle timeout reached, shutting down", "idle_for", idleFor)
		j.d.requestShutdown()
	}
	return nil
}

func (d *Daemon) requestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// New prepares (but does not yet bind) a Daemon for projectRoot.
func New(projectRoot string, eng *engine.Engine, idleShutdown time.Duration, logger *slog.Logger) *Daemon {
	if idleShutdown <= 0 {
		idleShutdown = DefaultIdleShutdown
	}
	d := &Daemon{
		projectRoot:  projectRoot,
		sockPath:     SocketPath(projectRoot),
		logger:       logger,
		idleShutdown: idleShutdown,
		service:      rpcserver.New(eng),
		shutdownCh:   make(chan struct{}),
	}
	d.lastActive.Store(time.Now().Unix())
	return d
}

// Run binds the socket, removing any stale socket file first, and serves
// connections until the idle deadline elapses or ctxDone fires.
func (d *Daemon) Run(ctxDone <-chan struct{}) error {
	if _, err := EnsureDir(d.projectRoot); err != nil {
		return fmt.Errorf("daemon: ensure .tracey dir: %w", err)
	}

	if _, err := os.Stat(d.sockPath); err == nil {
		d.logger.Info("removing stale socket", "path", d.sockPath)
		if err := os.Remove(d.sockPath); err != nil {
			return fmt.Errorf("daemon: remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", d.sockPath)
	if err != nil {
		return fmt.Errorf("daemon: bind %s: %w", d.sockPath, err)
	}
	defer ln.Close()
	defer os.Remove(d.sockPath)

	d.logger.Info("daemon listening", "path", d.sockPath)

	sched := scheduler.NewScheduler(d.logger)
	sched.AddJob(idleCheckJob{d: d}, acceptPollInterval)
	schedCtx, stopSched := context.WithCancel(context.Background())
	sched.Start(schedCtx)
	defer stopSched()
	defer sched.Stop()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			accepted <- acceptResult{conn, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctxDone:
			d.logger.Info("daemon shutting down on signal")
			return nil

		case <-d.shutdownCh:
			return nil

		case res := <-accepted:
			if res.err != nil {
				if errors.Is(res.err, net.ErrClosed) {
					return nil
				}
				d.logger.Error("accept failed", "error", res.err)
				continue
			}
			d.lastActive.Store(time.Now().Unix())
			n := d.activeConns.Add(1)
			d.logger.Info("connection accepted", "active", n)
			go d.handleConn(res.conn)
		}
	}
}

func (d *Daemon) handleConn(conn net.Conn) {
	defer func() {
		n := d.activeConns.Add(-1)
		d.lastActive.Store(time.Now().Unix())
		d.logger.Info("connection closed", "active", n)
	}()
	defer conn.Close()

	t := wire.NewTransport(conn)
	negotiated, err := wire.Handshake(t, wire.Hello{
		Version:             helloVersion,
		MaxPayloadSize:      helloMaxPayloadSize,
		InitialStreamCredit: helloStreamCredit,
	})
	if err != nil {
		d.logger.Warn("handshake failed", "error", err)
		return
	}
	d.logger.Debug("handshake complete", "max_payload", negotiated.MaxPayloadSize)

	if err := wire.Serve(t, negotiated, d.service, d.logger); err != nil {
		var violation *wire.ViolationError
		if errors.As(err, &violation) {
			d.logger.Warn("protocol violation", "reason", violation.Reason)
			return
		}
		d.logger.Warn("connection loop ended", "error", err)
	}
}
