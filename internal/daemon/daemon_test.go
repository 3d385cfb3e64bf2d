package daemon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tracey/internal/engine"
	"tracey/internal/rpcclient"
	"tracey/internal/rpcserver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestEnsureDirAddsGitignoreEntry(t *testing.T) {
	root := t.TempDir()
	_, err := EnsureDir(root)
	require.NoError(t, err)

	require.DirExists(t, filepath.Join(root, ".tracey"))
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	require.Contains(t, string(content), ".tracey/")
}

func TestEnsureDirSkipsExistingEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "node_modules/\n.tracey/\n")

	_, err := EnsureDir(root)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	require.Equal(t, 1, countOccurrences(string(content), ".tracey/"))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}

func TestEnsureDirAddsNewlineBeforeAppendWhenMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "node_modules/") // no trailing newline

	_, err := EnsureDir(root)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	require.Equal(t, "node_modules/\n.tracey/\n", string(content))
}

func TestDaemonServesRPCUntilSignalled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/auth.md", "r[auth.login]\nmust log in\n")
	writeFile(t, root, "src/login.go", "// r[impl auth.login]\nfunc Login() {}\n")
	writeFile(t, root, ".config/tracey/config.styx", `specs (
    {
        name docs
        include (docs/**/*.md)
        impls (
            { name src include (src/**/*.go) }
        )
    }
)`)
	eng, err := engine.New(root, filepath.Join(root, ".config/tracey/config.styx"), "tracey", testLogger())
	require.NoError(t, err)

	d := New(root, eng, time.Hour, testLogger())

	done := make(chan struct{})
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(done) }()

	sockPath := SocketPath(root)
	require.Eventually(t, func() bool {
		_, err := os.Stat(sockPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	client, err := rpcclient.Dial(sockPath)
	require.NoError(t, err)

	var status struct {
		Version   uint64
		SpecCount int
	}
	require.NoError(t, client.Call(rpcserver.MethodStatus, nil, &status))
	require.Equal(t, uint64(1), status.Version)
	require.NoError(t, client.Close())

	close(done)
	require.NoError(t, <-runErr)
}
