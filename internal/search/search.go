// Package search implements a minimal in-memory search index over rule
// definitions and references. The daemon's contract only specifies the
// search() RPC's interface (query, limit) -> ranked results; the indexing
// strategy itself is intentionally out of scope for this daemon and kept
// to a simple substring-ranked scan.
package search

import (
	"sort"
	"strings"

	"tracey/internal/snapshot"
)

// Result is one ranked search hit.
type Result struct {
	RuleID string
	File   string
	Line   int
	Score  float64
}

// Index is queried by Engine.Search; hot-swapped by the async reindex
// worker under a RWMutex in the engine.
type Index interface {
	Search(query string, limit int) []Result
}

type memIndex struct {
	entries []Result
}

// Search ranks entries by a simple substring-match score: an exact rule id
// match scores highest, a prefix match next, then any substring match.
func (m *memIndex) Search(query string, limit int) []Result {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)

	var hits []Result
	for _, e := range m.entries {
		id := strings.ToLower(e.RuleID)
		switch {
		case id == q:
			hits = append(hits, Result{e.RuleID, e.File, e.Line, 1.0})
		case strings.HasPrefix(id, q):
			hits = append(hits, Result{e.RuleID, e.File, e.Line, 0.7})
		case strings.Contains(id, q):
			hits = append(hits, Result{e.RuleID, e.File, e.Line, 0.4})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Empty returns an index with no entries, used before the first rebuild
// completes.
func Empty() Index {
	return &memIndex{}
}

// Build indexes every rule definition in snap.
func Build(snap *snapshot.Snapshot) Index {
	idx := &memIndex{}
	for id, defs := range snap.Defs {
		for _, d := range defs {
			idx.entries = append(idx.entries, Result{RuleID: id, File: d.File, Line: d.Line})
		}
	}
	return idx
}
