package buildcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tracey/internal/lexer"
)

func TestLookupMissesOnUnknownPath(t *testing.T) {
	c := New()
	_, ok := c.Lookup("a.go", time.Now(), 10, []byte("package a\n"))
	require.False(t, ok)
}

func TestStoreThenLookupHits(t *testing.T) {
	c := New()
	mtime := time.Now()
	content := []byte("package a\n")
	refs := []lexer.Reference{{RuleID: "x.y"}}
	c.Store("a.go", mtime, 10, content, refs, nil)

	e, ok := c.Lookup("a.go", mtime, 10, content)
	require.True(t, ok)
	require.Equal(t, refs, e.References)
	require.Equal(t, 1, c.Len())
}

func TestLookupMissesOnSizeChange(t *testing.T) {
	c := New()
	mtime := time.Now()
	content := []byte("package a\n")
	c.Store("a.go", mtime, 10, content, nil, nil)

	_, ok := c.Lookup("a.go", mtime, 11, content)
	require.False(t, ok)
}

func TestLookupMissesOnModTimeChange(t *testing.T) {
	c := New()
	mtime := time.Now()
	content := []byte("package a\n")
	c.Store("a.go", mtime, 10, content, nil, nil)

	_, ok := c.Lookup("a.go", mtime.Add(time.Second), 10, content)
	require.False(t, ok)
}

func TestLookupMissesWhenContentChangesUnderSameModTimeAndSize(t *testing.T) {
	c := New()
	mtime := time.Now()
	c.Store("a.go", mtime, 10, []byte("package a1\n"), []lexer.Reference{{RuleID: "x.y"}}, nil)

	_, ok := c.Lookup("a.go", mtime, 10, []byte("package a2\n"))
	require.False(t, ok)
}
