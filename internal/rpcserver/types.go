package rpcserver

import "tracey/internal/validate"

// StatusResult summarizes the daemon's current state.
type StatusResult struct {
	Version     uint64
	ConfigError string
	SpecCount   int
}

// SpecImplRequest names a (spec, impl) pair; empty strings mean "use the
// config's default", resolved by resolveSpecImpl.
type SpecImplRequest struct {
	Spec string
	Impl string
}

// ForwardResult is the forward-coverage projection for one (spec, impl).
type ForwardResult struct {
	Spec      string
	Impl      string
	Covered   map[string]int
	Uncovered []RuleSummary
	Stale     []RefSummary
}

// ReverseResult is the reverse-coverage projection: a flat list of
// references, each tagged with the code unit that contains it.
type ReverseResult struct {
	Spec string
	Impl string
	Refs []RefSummary
}

// RuleSummary is a compact rule-definition view for RPC responses.
type RuleSummary struct {
	ID   string
	File string
	Line int
}

// RefSummary is a compact reference-occurrence view for RPC responses.
type RefSummary struct {
	RuleID   string
	File     string
	Line     int
	CodeUnit string
	Verb     string
}

// FileRequest asks for the file-level view of one implementation file.
type FileRequest struct {
	Spec string
	Impl string
	Path string
}

// FileResult lists the references found in one file.
type FileResult struct {
	Path string
	Refs []RefSummary
}

// RuleRequest asks for one rule's full detail.
type RuleRequest struct {
	RuleID string
}

// RuleInfo is the full detail for one rule id across every spec/impl.
type RuleInfo struct {
	ID        string
	Defs      []RuleSummary
	Refs      []RefSummary
}

// ConfigResult mirrors the workspace config for read-only inspection.
type ConfigResult struct {
	Specs []ConfigSpec
}

type ConfigSpec struct {
	Name    string
	Include []string
	Exclude []string
	Impls   []ConfigImpl
}

type ConfigImpl struct {
	Name    string
	Include []string
	Exclude []string
}

// VFSRequest carries an overlay mutation.
type VFSRequest struct {
	Path    string
	Content string
}

// ReloadResult reports the outcome of an explicit reload() call.
type ReloadResult struct {
	Version uint64
	ElapsedMS int64
}

// SearchRequest carries a search query.
type SearchRequest struct {
	Query string
	Limit uint64
}

// SearchResultWire is one ranked search hit.
type SearchResultWire struct {
	RuleID string
	File   string
	Line   int
	Score  float64
}

// ValidateRequest scopes a validate() call to a rule id, or "" for all.
type ValidateRequest struct {
	RuleID string
}

// ValidateResultWire carries the validate() outcome over the wire.
type ValidateResultWire struct {
	Blocked  bool
	Findings []ValidateFindingWire
}

// ValidateFindingWire is one validation finding.
type ValidateFindingWire struct {
	Check    string
	Severity string
	Message  string
	RuleID   string
	File     string
	Line     int
}

func findingToWire(f validate.Finding) ValidateFindingWire {
	return ValidateFindingWire{
		Check: f.Check, Severity: f.Severity.String(), Message: f.Message,
		RuleID: f.RuleID, File: f.File, Line: f.Line,
	}
}

// IsTestFileRequest asks whether a path looks like a test file.
type IsTestFileRequest struct {
	Path string
}
