// Package snapshot builds and represents one immutable traceability
// snapshot: every rule definition, every rule reference, and the
// forward/reverse coverage projections derived from them.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tracey/internal/buildcache"
	"tracey/internal/codeunits"
	"tracey/internal/lexer"
	"tracey/internal/ruleid"
	"tracey/internal/sources"
	"tracey/internal/specdoc"
	"tracey/internal/styxconfig"
	"tracey/internal/vfs"
)

// RuleDef is one parsed rule definition.
type RuleDef struct {
	ID    string
	Attrs map[string]string
	File  string
	Line  int
}

// RefOccurrence is one parsed rule reference, located in an implementation
// file.
type RefOccurrence struct {
	RuleID   string
	Verb     lexer.Verb
	File     string
	Line     int
	CodeUnit string
}

// SpecCoverage is the forward/reverse projection for one (spec, impl) pair.
type SpecCoverage struct {
	SpecName string
	ImplName string
	// Covered maps base rule id -> references that satisfy it exactly or are
	// stale-but-present.
	Covered map[string][]RefOccurrence
	// Uncovered lists rule definitions with zero references of any kind.
	Uncovered []RuleDef
	// Stale lists references whose version trails the current definition.
	Stale []RefOccurrence
	// Unmapped lists references whose rule id matches no known definition.
	Unmapped []RefOccurrence
}

// Snapshot is one complete, immutable scan result.
type Snapshot struct {
	Version   uint64
	BuiltAt   time.Time
	Specs     []styxconfig.Spec
	Defs      map[string][]RuleDef // base rule id -> all definitions sharing that base, any version
	Coverages []SpecCoverage
	Warnings  []lexer.Warning
}

// Build scans projectRoot per cfg, honoring vfs overlay content and the
// build cache, and returns a fully computed snapshot. It takes no
// changed-file hint: the scan always walks the full matching file set so
// the computed coverage is always complete, and unchanged files are served
// from the build cache.
func Build(projectRoot string, cfg styxconfig.Config, version uint64, overlay map[string]string, cache *buildcache.Cache) (*Snapshot, error) {
	snap := &Snapshot{
		Version: version,
		BuiltAt: builtAtStamp(),
		Specs:   cfg.Specs,
		Defs:    make(map[string][]RuleDef),
	}

	for _, spec := range cfg.Specs {
		specPaths, err := sources.WalkMatching(projectRoot, func(rel string) bool {
			return sources.IsMarkdown(rel) && styxconfig.Matches(rel, spec.Include, spec.Exclude)
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot: walking spec %q: %w", spec.Name, err)
		}

		for _, rel := range specPaths {
			content, _, _, err := readWithOverlay(projectRoot, rel, overlay)
			if err != nil {
				return nil, fmt.Errorf("snapshot: reading %s: %w", rel, err)
			}
			for _, def := range specdoc.ExtractDefinitions(content) {
				rd := RuleDef{ID: def.ID, Attrs: def.Attrs, File: rel, Line: def.Line}
				base := baseOf(def.ID)
				snap.Defs[base] = append(snap.Defs[base], rd)
			}
		}

		for _, impl := range spec.Impls {
			cov := SpecCoverage{SpecName: spec.Name, ImplName: impl.Name, Covered: map[string][]RefOccurrence{}}

			implPaths, err := sources.WalkMatching(projectRoot, func(rel string) bool {
				return sources.IsSupportedExtension(rel) && styxconfig.MatchesImpl(rel, spec, impl)
			})
			if err != nil {
				return nil, fmt.Errorf("snapshot: walking impl %q: %w", impl.Name, err)
			}

			for _, rel := range implPaths {
				content, modTime, size, err := readWithOverlay(projectRoot, rel, overlay)
				if err != nil {
					return nil, fmt.Errorf("snapshot: reading %s: %w", rel, err)
				}

				var refs []lexer.Reference
				var warns []lexer.Warning
				inOverlay := false
				if overlay != nil {
					_, inOverlay = overlay[rel]
				}

				if !inOverlay {
					if entry, ok := cache.Lookup(rel, modTime, size, []byte(content)); ok {
						refs, warns = entry.References, entry.Warnings
					}
				}
				if refs == nil && warns == nil {
					refs, warns = lexer.Scan(extOf(rel), content)
					if !inOverlay {
						cache.Store(rel, modTime, size, []byte(content), refs, warns)
					}
				}
				snap.Warnings = append(snap.Warnings, warns...)

				lines := splitLines(content)
				for _, ref := range refs {
					unit, _ := codeunits.Nearest(extOf(rel), lines, ref.Line)
					occ := RefOccurrence{RuleID: ref.RuleID, Verb: ref.Verb, File: rel, Line: ref.Line, CodeUnit: unit.Name}
					classifyOccurrence(snap, &cov, occ)
				}
			}

			for id, defs := range snap.Defs {
				if len(cov.Covered[id]) == 0 {
					cov.Uncovered = append(cov.Uncovered, defs...)
				}
			}

			snap.Coverages = append(snap.Coverages, cov)
		}
	}

	return snap, nil
}

func classifyOccurrence(snap *Snapshot, cov *SpecCoverage, occ RefOccurrence) {
	base := baseOf(occ.RuleID)
	defs, known := snap.Defs[base]
	if !known || len(defs) == 0 {
		cov.Unmapped = append(cov.Unmapped, occ)
		return
	}

	best := ruleid.NoMatch
	for _, def := range defs {
		switch m := ruleid.Classify(def.ID, occ.RuleID); {
		case m == ruleid.Exact:
			best = ruleid.Exact
		case m == ruleid.Stale && best != ruleid.Exact:
			best = ruleid.Stale
		}
	}

	switch best {
	case ruleid.Exact:
		cov.Covered[base] = append(cov.Covered[base], occ)
	case ruleid.Stale:
		cov.Stale = append(cov.Stale, occ)
		cov.Covered[base] = append(cov.Covered[base], occ)
	default:
		cov.Unmapped = append(cov.Unmapped, occ)
	}
}

func baseOf(id string) string {
	if p, ok := ruleid.Parse(id); ok {
		return p.Base
	}
	return id
}

func extOf(rel string) string {
	e := filepath.Ext(rel)
	if len(e) > 0 {
		e = e[1:]
	}
	return e
}

func readWithOverlay(projectRoot, rel string, overlay map[string]string) (content string, modTime time.Time, size int64, err error) {
	if overlay != nil {
		if c, ok := overlay[rel]; ok {
			return c, time.Time{}, int64(len(c)), nil
		}
	}
	full := filepath.Join(projectRoot, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	return string(data), info.ModTime(), info.Size(), nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// builtAtStamp is a package-level var so tests can substitute a fixed
// clock instead of the real time.Now.
var builtAtStamp = time.Now
