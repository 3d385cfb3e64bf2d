// Package watcher debounces filesystem change notifications for one
// workspace root into coalesced batches of relative paths, filtering out
// anything .gitignore (or the implicit .git/ rule) would exclude.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/monochromegane/go-gitignore"
)

const debounceWindow = 200 * time.Millisecond

// Watcher watches a project root recursively plus one extra config file,
// emitting debounced batches of changed paths (relative to root) on
// Changes. Batches that end up empty after gitignore filtering are never
// sent.
type Watcher struct {
	root       string
	configPath string
	logger     *slog.Logger

	fsw     *fsnotify.Watcher
	ignore  gitignore.IgnoreMatcher
	changes chan []string
	done    chan struct{}
}

// New creates a Watcher rooted at root, also watching configPath (which
// may live outside root, e.g. in a user config directory) individually.
func New(root, configPath string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:       root,
		configPath: configPath,
		logger:     logger,
		fsw:        fsw,
		ignore:     buildIgnoreMatcher(root, logger),
		changes:    make(chan []string, 16),
		done:       make(chan struct{}),
	}

	if err := w.watchRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != root {
			if err := fsw.Add(dir); err != nil {
				w.logger.Warn("failed to watch config directory", "dir", dir, "error", err)
			}
		}
	}

	return w, nil
}

func buildIgnoreMatcher(root string, logger *slog.Logger) gitignore.IgnoreMatcher {
	giPath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(giPath); err == nil {
		m, err := gitignore.NewGitIgnore(giPath)
		if err == nil {
			return m
		}
		logger.Warn("failed to parse .gitignore", "error", err)
	}
	return gitignore.DummyIgnoreMatcher(false)
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Changes returns the channel of debounced, gitignore-filtered relative
// path batches.
func (w *Watcher) Changes() <-chan []string { return w.changes }

// Run drives the debounce loop until Close is called. Call it in its own
// goroutine.
func (w *Watcher) Run() {
	var pending []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		filtered := w.filterIgnored(pending)
		pending = nil
		if len(filtered) == 0 {
			return
		}
		logBatch(w.logger, filtered)
		select {
		case w.changes <- filtered:
		default:
			w.logger.Warn("watcher: change batch dropped, consumer backlogged")
		}
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				close(w.changes)
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = append(pending, ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			w.logger.Warn("watcher error", "error", err)

		case <-w.done:
			flush()
			close(w.changes)
			return
		}
	}
}

// Close stops the watcher and its Run loop.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) filterIgnored(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, "..") {
			continue
		}
		if seen[rel] {
			continue
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			continue
		}
		full := filepath.Join(w.root, rel)
		info, statErr := os.Stat(full)
		isDir := statErr == nil && info.IsDir()
		if w.ignore.Match(full, isDir) {
			continue
		}
		seen[rel] = true
		out = append(out, rel)
	}
	return out
}

func logBatch(logger *slog.Logger, paths []string) {
	if len(paths) <= 3 {
		logger.Info("file change detected", "paths", strings.Join(paths, ", "))
		return
	}
	logger.Info("file changes detected",
		"paths", strings.Join(paths[:2], ", "),
		"more", len(paths)-2)
}
