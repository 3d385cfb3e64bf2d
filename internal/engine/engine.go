// Package engine owns the full traceability index for one workspace:
// the current immutable snapshot, the workspace config, the VFS overlay,
// the build cache, and the async search-reindex worker, all guarded by a
// fixed lock order (snapshot -> config -> config error -> version) so a
// reader never observes a torn combination of the four.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"tracey/internal/buildcache"
	"tracey/internal/search"
	"tracey/internal/snapshot"
	"tracey/internal/styxconfig"
	"tracey/internal/vfs"
)

const searchReindexDebounce = 150 * time.Millisecond

// Engine is the daemon's single in-memory traceability index.
type Engine struct {
	projectRoot string
	configPath  string
	appName     string
	logger      *slog.Logger

	snapMu sync.RWMutex
	snap   *snapshot.Snapshot

	configMu sync.RWMutex
	config   styxconfig.Config

	configErrMu sync.RWMutex
	configErr   string

	version atomic.Uint64

	overlay *vfs.Overlay

	cacheMu sync.Mutex
	cache   *buildcache.Cache

	searchMu       sync.RWMutex
	searchIndex    search.Index
	searchActivated atomic.Bool
	reindexCh      chan *snapshot.Snapshot

	updatesMu sync.Mutex
	updates   []chan struct{}
}

// New constructs an Engine, performing an initial build. A missing config
// file means the default config, with no error recorded. If the config is
// unreadable or invalid, or the initial build fails, it falls back to the
// default config and still produces a usable (if degraded) snapshot,
// recording the failure reason in ConfigError.
func New(projectRoot, configPath, appName string, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		projectRoot: projectRoot,
		configPath:  configPath,
		appName:     appName,
		logger:      logger,
		overlay:     vfs.New(),
		cache:       buildcache.New(),
		searchIndex: search.Empty(),
		reindexCh:   make(chan *snapshot.Snapshot, 64),
	}

	if msg := styxconfig.CheckDeprecated(projectRoot, appName); msg != "" {
		e.configErr = msg
		logger.Warn("deprecated config detected", "message", msg)
	}

	cfg, cfgErr := loadConfigOrDefault(configPath)
	if cfgErr != "" && e.configErr == "" {
		e.configErr = cfgErr
	}
	e.config = cfg

	snap, err := snapshot.Build(projectRoot, cfg, 1, nil, e.cache)
	if err != nil {
		logger.Warn("initial build failed, retrying with default config", "error", err)
		e.configErr = err.Error()
		e.config = styxconfig.Default()
		snap, err = snapshot.Build(projectRoot, e.config, 1, nil, e.cache)
		if err != nil {
			return nil, fmt.Errorf("engine: initial build failed even with default config: %w", err)
		}
	}
	e.snap = snap
	e.version.Store(1)

	go e.runSearchReindexWorker()

	return e, nil
}

func loadConfigOrDefault(path string) (styxconfig.Config, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return styxconfig.Default(), ""
		}
		return styxconfig.Default(), fmt.Sprintf("reading config file %s: %v", path, err)
	}
	cfg, err := styxconfig.Parse(string(data))
	if err != nil {
		return styxconfig.Default(), fmt.Sprintf("Config file %s has errors:\n%v", path, err)
	}
	return cfg, ""
}

// Snapshot returns the current immutable snapshot. Cheap: callers receive
// a shared pointer, never a copy.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap
}

// Version returns the current snapshot version.
func (e *Engine) Version() uint64 {
	return e.version.Load()
}

// Config returns a copy of the current workspace config.
func (e *Engine) Config() styxconfig.Config {
	e.configMu.RLock()
	defer e.configMu.RUnlock()
	return e.config
}

// ConfigError returns the last recorded config error, or "" if the most
// recent rebuild's config was valid.
func (e *Engine) ConfigError() string {
	e.configErrMu.RLock()
	defer e.configErrMu.RUnlock()
	return e.configErr
}

// ProjectRoot returns the workspace root path.
func (e *Engine) ProjectRoot() string { return e.projectRoot }

// VFSOpen records overlay content for path and triggers a rebuild scoped
// to that path. Errors are logged, not propagated, matching the "best
// effort" nature of editor-driven overlay updates.
func (e *Engine) VFSOpen(path, content string) {
	e.overlay.Open(path, content)
	if _, err := e.RebuildWithChanges([]string{path}); err != nil {
		e.logger.Warn("rebuild after vfs_open failed", "path", path, "error", err)
	}
}

// VFSChange is semantically identical to VFSOpen.
func (e *Engine) VFSChange(path, content string) {
	e.overlay.Change(path, content)
	if _, err := e.RebuildWithChanges([]string{path}); err != nil {
		e.logger.Warn("rebuild after vfs_change failed", "path", path, "error", err)
	}
}

// VFSClose removes path from the overlay and rebuilds.
func (e *Engine) VFSClose(path string) {
	e.overlay.Close(path)
	if _, err := e.RebuildWithChanges([]string{path}); err != nil {
		e.logger.Warn("rebuild after vfs_close failed", "path", path, "error", err)
	}
}

// Rebuild triggers a full rebuild with no specific changed-file hint.
func (e *Engine) Rebuild() (uint64, time.Duration, error) {
	return e.RebuildWithChanges(nil)
}

// RebuildWithChanges runs the full rebuild protocol:
//
//  1. Re-read the workspace config file. A parse or read failure keeps
//     using the previously stored config for this attempt but still
//     records the new error string. A missing file resets to defaults
//     with no error.
//  2. Clone the VFS overlay and lock the build cache for the duration of
//     the scan.
//  3. Compute the proposed version as current+1.
//  4. On a semantic build failure, record the error and return the
//     CURRENT (unchanged) version: a failed rebuild never regresses data.
//  5. On success, swap in the new snapshot, then the config, then the
//     config error, then the version, in that fixed order, and wake any
//     subscribers. If search has ever been activated, enqueue a
//     reindex of the new snapshot.
func (e *Engine) RebuildWithChanges(changedFiles []string) (uint64, time.Duration, error) {
	start := time.Now()

	reloadedCfg, reloadErr := loadConfigForRebuild(e.configPath)

	var cfgToUse styxconfig.Config
	if reloadedCfg != nil {
		cfgToUse = *reloadedCfg
	} else {
		cfgToUse = e.Config()
	}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	overlaySnapshot := e.overlay.Snapshot()
	newVersion := e.Version() + 1

	newSnap, err := snapshot.Build(e.projectRoot, cfgToUse, newVersion, overlaySnapshot, e.cache)
	if err != nil {
		e.logger.Warn("rebuild failed", "error", err, "changed_files", changedFiles)
		e.configErrMu.Lock()
		e.configErr = err.Error()
		e.configErrMu.Unlock()
		return e.Version(), time.Since(start), nil
	}

	e.snapMu.Lock()
	e.snap = newSnap
	e.snapMu.Unlock()

	e.configMu.Lock()
	e.config = cfgToUse
	e.configMu.Unlock()

	e.configErrMu.Lock()
	e.configErr = reloadErr
	e.configErrMu.Unlock()

	e.version.Store(newVersion)

	e.notifySubscribers()

	if e.searchActivated.Load() {
		e.spawnSearchReindex(newSnap)
	}

	return newVersion, time.Since(start), nil
}

// loadConfigForRebuild re-reads the workspace config file for a rebuild
// attempt. It returns (nil, errString) when the file exists but fails to
// parse or cannot be read (caller should keep using the previous config
// while still recording errString); it returns (&Config, "") on a missing
// file (reset to defaults) or a successful parse.
func loadConfigForRebuild(path string) (*styxconfig.Config, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := styxconfig.Default()
			return &cfg, ""
		}
		return nil, fmt.Sprintf("reading config file %s: %v", path, err)
	}
	cfg, err := styxconfig.Parse(string(data))
	if err != nil {
		return nil, fmt.Sprintf("Config file %s has errors:\n%v", path, err)
	}
	return &cfg, ""
}

// Search runs a search query against the current search index. The first
// call to Search ever activates the (otherwise dormant) search subsystem
// and enqueues an immediate reindex of the current snapshot; subsequent
// calls just query the last-built index.
func (e *Engine) Search(query string, limit int) []search.Result {
	wasActive := e.searchActivated.Swap(true)
	if !wasActive {
		e.spawnSearchReindex(e.Snapshot())
	}

	e.searchMu.RLock()
	idx := e.searchIndex
	e.searchMu.RUnlock()
	return idx.Search(query, limit)
}

func (e *Engine) spawnSearchReindex(snap *snapshot.Snapshot) {
	for {
		select {
		case e.reindexCh <- snap:
			return
		default:
		}
		// Buffer full: discard the oldest pending snapshot to make room.
		// The worker only indexes the newest snapshot it drains, so the
		// discarded one would have been superseded anyway.
		select {
		case <-e.reindexCh:
		default:
		}
	}
}

// runSearchReindexWorker debounces bursts of reindex requests by 150ms
// and coalesces any backlog down to only the most recent snapshot before
// building, so a flurry of rapid rebuilds triggers one reindex, not one
// per rebuild.
func (e *Engine) runSearchReindexWorker() {
	for snap := range e.reindexCh {
		time.Sleep(searchReindexDebounce)
		latest := snap
	drain:
		for {
			select {
			case next := <-e.reindexCh:
				latest = next
			default:
				break drain
			}
		}

		start := time.Now()
		idx := search.Build(latest)
		e.searchMu.Lock()
		e.searchIndex = idx
		e.searchMu.Unlock()
		e.logger.Debug("search index rebuilt", "version", latest.Version, "elapsed", time.Since(start))
	}
}

// Subscribe returns a channel that receives a value every time a rebuild
// publishes a new snapshot. The returned cancel function must be called
// to stop receiving updates.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.updatesMu.Lock()
	e.updates = append(e.updates, ch)
	e.updatesMu.Unlock()

	cancel := func() {
		e.updatesMu.Lock()
		defer e.updatesMu.Unlock()
		for i, c := range e.updates {
			if c == ch {
				e.updates = append(e.updates[:i], e.updates[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

func (e *Engine) notifySubscribers() {
	e.updatesMu.Lock()
	defer e.updatesMu.Unlock()
	for _, ch := range e.updates {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SocketPath returns the daemon's control socket path for this workspace.
func SocketPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tracey", "daemon.sock")
}
