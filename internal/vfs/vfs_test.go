package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenThenLookup(t *testing.T) {
	o := New()
	o.Open("a.go", "package a\n")

	content, ok := o.Lookup("a.go")
	require.True(t, ok)
	require.Equal(t, "package a\n", content)
}

func TestCloseRemovesEntry(t *testing.T) {
	o := New()
	o.Open("a.go", "package a\n")
	o.Close("a.go")

	_, ok := o.Lookup("a.go")
	require.False(t, ok)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	o := New()
	o.Open("a.go", "v1")

	snap := o.Snapshot()
	o.Change("a.go", "v2")

	require.Equal(t, "v1", snap["a.go"])
	content, _ := o.Lookup("a.go")
	require.Equal(t, "v2", content)
}

func TestLookupMissingPath(t *testing.T) {
	o := New()
	_, ok := o.Lookup("missing.go")
	require.False(t, ok)
}
