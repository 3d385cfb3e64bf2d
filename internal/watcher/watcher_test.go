package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDebouncesAndFiltersIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	w, err := New(root, "", testLogger())
	require.NoError(t, err)
	go w.Run()
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"), []byte("package src\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "ignored.log"), []byte("x\n"), 0o644))

	select {
	case batch := <-w.Changes():
		require.Contains(t, batch, "src/a.go")
		require.NotContains(t, batch, "src/ignored.log")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
}

func TestWatcherSkipsGitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	w, err := New(root, "", testLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	go w.Run()
	select {
	case batch := <-w.Changes():
		t.Fatalf("unexpected change batch from .git: %v", batch)
	case <-time.After(400 * time.Millisecond):
	}
}
