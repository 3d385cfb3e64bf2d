// Package validate runs the validate() RPC's checks against a snapshot:
// structural problems (unparsable or duplicate rule ids, dependency
// cycles) are hard failures; staleness and missing coverage are advisory.
//
// The Severity/Result/Outcome shape mirrors a guard-rail aggregator: each
// check contributes zero or more Results, and the Outcome's Blocked flag
// reflects whether any hard failure fired.
package validate

import (
	"fmt"

	"tracey/internal/lexer"
	"tracey/internal/ruleid"
	"tracey/internal/snapshot"
)

// Severity ranks how serious a validation finding is.
type Severity int

const (
	Suggestion Severity = iota
	Warning
	HardFail
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "SUGGESTION"
	case Warning:
		return "WARNING"
	case HardFail:
		return "HARD_FAIL"
	default:
		return "UNKNOWN"
	}
}

// Finding is one validation result.
type Finding struct {
	Check    string
	Severity Severity
	Message  string
	RuleID   string
	File     string
	Line     int
}

// Outcome aggregates every finding from a validate() run.
type Outcome struct {
	Blocked  bool
	Findings []Finding
}

// HardFails returns all hard-failure findings.
func (o *Outcome) HardFails() []Finding { return o.filter(HardFail) }

// Warnings returns all warning findings.
func (o *Outcome) Warnings() []Finding { return o.filter(Warning) }

// Suggestions returns all suggestion findings.
func (o *Outcome) Suggestions() []Finding { return o.filter(Suggestion) }

func (o *Outcome) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range o.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Run validates snap, optionally scoped to a single rule id (empty string
// means validate everything).
func Run(snap *snapshot.Snapshot, ruleFilter string) *Outcome {
	out := &Outcome{}

	checkUnparsableIDs(snap, ruleFilter, out)
	checkDuplicateIDs(snap, ruleFilter, out)
	checkDependencyCycles(snap, ruleFilter, out)
	checkStaleReferences(snap, ruleFilter, out)
	checkUnreferencedRules(snap, ruleFilter, out)

	for _, f := range out.Findings {
		if f.Severity == HardFail {
			out.Blocked = true
			break
		}
	}
	return out
}

func matches(filter, id string) bool {
	return filter == "" || filter == id
}

func checkUnparsableIDs(snap *snapshot.Snapshot, filter string, out *Outcome) {
	for id, defs := range snap.Defs {
		if !matches(filter, id) {
			continue
		}
		if _, ok := ruleid.Parse(id); !ok {
			for _, d := range defs {
				out.Findings = append(out.Findings, Finding{
					Check: "rule-id.parse", Severity: HardFail,
					Message: fmt.Sprintf("rule id %q does not parse", id),
					RuleID:  id, File: d.File, Line: d.Line,
				})
			}
		}
	}
}

// checkDuplicateIDs flags a literal id (not merely a shared base) defined
// more than once — two definitions sharing a base but naming distinct
// versions (e.g. "x.y" and "x.y+2") are not duplicates.
func checkDuplicateIDs(snap *snapshot.Snapshot, filter string, out *Outcome) {
	byLiteralID := map[string][]snapshot.RuleDef{}
	for _, defs := range snap.Defs {
		for _, d := range defs {
			byLiteralID[d.ID] = append(byLiteralID[d.ID], d)
		}
	}

	for id, defs := range byLiteralID {
		if !matches(filter, id) || len(defs) < 2 {
			continue
		}
		out.Findings = append(out.Findings, Finding{
			Check: "rule-id.duplicate", Severity: HardFail,
			Message: fmt.Sprintf("rule id %q is defined %d times", id, len(defs)),
			RuleID:  id, File: defs[0].File, Line: defs[0].Line,
		})
	}
}

// checkDependencyCycles builds the "depends" adjacency from reference
// occurrences (a VerbDepends reference from a rule's own definition file
// is treated as an edge def -> dependency) and runs an iterative DFS to
// find cycles, per the conservative adjacency-map approach (never a
// pointer graph).
func checkDependencyCycles(snap *snapshot.Snapshot, filter string, out *Outcome) {
	adjacency := map[string][]string{}
	for _, cov := range snap.Coverages {
		for id, occs := range cov.Covered {
			for _, occ := range occs {
				if occ.Verb == lexer.VerbDepends {
					adjacency[id] = append(adjacency[id], occ.RuleID)
				}
			}
		}
	}

	visited := map[string]int{} // 0=unvisited, 1=in-progress, 2=done
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visited[id] = 1
		path = append(path, id)
		for _, next := range adjacency[id] {
			switch visited[next] {
			case 1:
				cycle := append([]string{}, path...)
				cycle = append(cycle, next)
				return cycle
			case 0:
				if cyc := dfs(next); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		visited[id] = 2
		return nil
	}

	for id := range adjacency {
		if !matches(filter, id) {
			continue
		}
		if visited[id] == 0 {
			if cyc := dfs(id); cyc != nil {
				out.Findings = append(out.Findings, Finding{
					Check: "rule.dependency-cycle", Severity: HardFail,
					Message: fmt.Sprintf("dependency cycle: %v", cyc),
					RuleID:  id,
				})
			}
		}
	}
}

func checkStaleReferences(snap *snapshot.Snapshot, filter string, out *Outcome) {
	for _, cov := range snap.Coverages {
		for _, occ := range cov.Stale {
			if !matches(filter, occ.RuleID) {
				continue
			}
			out.Findings = append(out.Findings, Finding{
				Check: "reference.stale", Severity: Warning,
				Message: fmt.Sprintf("reference to %q in %s:%d is stale", occ.RuleID, occ.File, occ.Line),
				RuleID:  occ.RuleID, File: occ.File, Line: occ.Line,
			})
		}
	}
}

func checkUnreferencedRules(snap *snapshot.Snapshot, filter string, out *Outcome) {
	for _, cov := range snap.Coverages {
		for _, def := range cov.Uncovered {
			if !matches(filter, def.ID) {
				continue
			}
			out.Findings = append(out.Findings, Finding{
				Check: "rule.unreferenced", Severity: Suggestion,
				Message: fmt.Sprintf("rule %q (%s) has no implementation references", def.ID, cov.ImplName),
				RuleID:  def.ID, File: def.File, Line: def.Line,
			})
		}
	}
}
