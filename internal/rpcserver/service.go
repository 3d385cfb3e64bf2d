package rpcserver

import (
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"tracey/internal/engine"
	"tracey/internal/lexer"
	"tracey/internal/rpcerrors"
	"tracey/internal/snapshot"
	"tracey/internal/validate"
)

// Service implements wire.Dispatcher against one workspace Engine.
type Service struct {
	engine *engine.Engine
}

// New wraps engine for RPC dispatch.
func New(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

// Dispatch decodes the request payload for methodID, invokes the matching
// handler, and encodes its result. Unknown method ids and handler errors
// are both carried back as an encoded rpcerrors.Error payload rather than
// a transport-level failure.
func (s *Service) Dispatch(methodID uint32, payload []byte) ([]byte, error) {
	handler, ok := handlers[methodID]
	if !ok {
		return encodeError(rpcerrors.InvalidArgument("unknown method id %d", methodID))
	}
	return handler(s, payload)
}

type handlerFunc func(s *Service, payload []byte) ([]byte, error)

var handlers = map[uint32]handlerFunc{
	MethodStatus:          (*Service).handleStatus,
	MethodForward:         (*Service).handleForward,
	MethodReverse:         (*Service).handleReverse,
	MethodSpecContent:     (*Service).handleSpecContent,
	MethodFile:            (*Service).handleFile,
	MethodUncovered:       (*Service).handleUncovered,
	MethodUntested:        (*Service).handleUntested,
	MethodUnmapped:        (*Service).handleUnmapped,
	MethodRule:            (*Service).handleRule,
	MethodConfig:          (*Service).handleConfig,
	MethodVFSOpen:         (*Service).handleVFSOpen,
	MethodVFSChange:       (*Service).handleVFSChange,
	MethodVFSClose:        (*Service).handleVFSClose,
	MethodReload:          (*Service).handleReload,
	MethodVersion:         (*Service).handleVersion,
	MethodSearch:          (*Service).handleSearch,
	MethodValidate:        (*Service).handleValidate,
	MethodIsTestFile:      (*Service).handleIsTestFile,
	MethodAddInclude:      (*Service).handleNotImplemented,
	MethodAddExclude:      (*Service).handleNotImplemented,
	MethodSubscribe:       (*Service).handleNotImplemented,
	MethodUpdateFileRange: (*Service).handleNotImplemented,
}

func encodeError(err *rpcerrors.Error) ([]byte, error) {
	return msgpack.Marshal(struct {
		Err *rpcerrors.Error `msgpack:"error"`
	}{Err: err})
}

func encodeOK(v any) ([]byte, error) {
	return msgpack.Marshal(struct {
		Result any `msgpack:"result"`
	}{Result: v})
}

func decode[T any](payload []byte) (T, error) {
	var v T
	err := msgpack.Unmarshal(payload, &v)
	return v, err
}

// resolveSpecImpl defaults a missing spec to the config's first spec, and
// a missing impl to that spec's first implementation. Missing spec/impl
// yields a zero-value response, never an error, matching the daemon's own
// "no partial failure on an empty workspace" contract.
func resolveSpecImpl(cfg []snapshot.SpecCoverage, specName, implName string) (snapshot.SpecCoverage, bool) {
	if len(cfg) == 0 {
		return snapshot.SpecCoverage{}, false
	}
	if specName == "" {
		specName = cfg[0].SpecName
	}
	if implName == "" {
		for _, c := range cfg {
			if c.SpecName == specName {
				implName = c.ImplName
				break
			}
		}
	}
	for _, c := range cfg {
		if c.SpecName == specName && c.ImplName == implName {
			return c, true
		}
	}
	return snapshot.SpecCoverage{}, false
}

func (s *Service) handleStatus(payload []byte) ([]byte, error) {
	snap := s.engine.Snapshot()
	return encodeOK(StatusResult{
		Version:     s.engine.Version(),
		ConfigError: s.engine.ConfigError(),
		SpecCount:   len(snap.Specs),
	})
}

func (s *Service) handleForward(payload []byte) ([]byte, error) {
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK((*ForwardResult)(nil))
	}

	covered := map[string]int{}
	for id, occs := range cov.Covered {
		covered[id] = len(occs)
	}
	var uncovered []RuleSummary
	for _, d := range cov.Uncovered {
		uncovered = append(uncovered, RuleSummary{ID: d.ID, File: d.File, Line: d.Line})
	}
	return encodeOK(ForwardResult{
		Spec: cov.SpecName, Impl: cov.ImplName,
		Covered: covered, Uncovered: uncovered, Stale: refsToSummaries(cov.Stale),
	})
}

func (s *Service) handleReverse(payload []byte) ([]byte, error) {
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK((*ReverseResult)(nil))
	}
	var refs []RefSummary
	for _, occs := range cov.Covered {
		refs = append(refs, refsToSummaries(occs)...)
	}
	refs = append(refs, refsToSummaries(cov.Unmapped)...)
	return encodeOK(ReverseResult{Spec: cov.SpecName, Impl: cov.ImplName, Refs: refs})
}

func (s *Service) handleSpecContent(payload []byte) ([]byte, error) {
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK((*ConfigSpec)(nil))
	}
	for _, sp := range snap.Specs {
		if sp.Name == cov.SpecName {
			return encodeOK(ConfigSpec{Name: sp.Name, Include: sp.Include, Exclude: sp.Exclude})
		}
	}
	return encodeOK((*ConfigSpec)(nil))
}

func (s *Service) handleFile(payload []byte) ([]byte, error) {
	req, err := decode[FileRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK((*FileResult)(nil))
	}
	var refs []RefSummary
	for _, occs := range cov.Covered {
		for _, o := range occs {
			if o.File == req.Path {
				refs = append(refs, refOccToSummary(o))
			}
		}
	}
	for _, o := range cov.Unmapped {
		if o.File == req.Path {
			refs = append(refs, refOccToSummary(o))
		}
	}
	return encodeOK(FileResult{Path: req.Path, Refs: refs})
}

func (s *Service) handleUncovered(payload []byte) ([]byte, error) {
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK([]RuleSummary{})
	}
	var out []RuleSummary
	for _, d := range cov.Uncovered {
		out = append(out, RuleSummary{ID: d.ID, File: d.File, Line: d.Line})
	}
	return encodeOK(out)
}

func (s *Service) handleUntested(payload []byte) ([]byte, error) {
	// "Untested" mirrors uncovered scoped to rules with no Verify-verb
	// reference at all, regardless of Impl-verb coverage.
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK([]RuleSummary{})
	}
	tested := map[string]bool{}
	for id, occs := range cov.Covered {
		for _, o := range occs {
			if o.Verb == lexer.VerbVerify {
				tested[id] = true
			}
		}
	}
	var out []RuleSummary
	for id, defs := range snap.Defs {
		if tested[id] {
			continue
		}
		out = append(out, RuleSummary{ID: id, File: defs[0].File, Line: defs[0].Line})
	}
	return encodeOK(out)
}

func (s *Service) handleUnmapped(payload []byte) ([]byte, error) {
	req, err := decode[SpecImplRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	cov, ok := resolveSpecImpl(snap.Coverages, req.Spec, req.Impl)
	if !ok {
		return encodeOK([]RefSummary{})
	}
	return encodeOK(refsToSummaries(cov.Unmapped))
}

func (s *Service) handleRule(payload []byte) ([]byte, error) {
	req, err := decode[RuleRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	snap := s.engine.Snapshot()
	defs, ok := snap.Defs[req.RuleID]
	if !ok {
		return encodeOK((*RuleInfo)(nil))
	}
	var defSummaries []RuleSummary
	for _, d := range defs {
		defSummaries = append(defSummaries, RuleSummary{ID: d.ID, File: d.File, Line: d.Line})
	}
	var refs []RefSummary
	for _, cov := range snap.Coverages {
		refs = append(refs, refsToSummaries(cov.Covered[req.RuleID])...)
	}
	return encodeOK(RuleInfo{ID: req.RuleID, Defs: defSummaries, Refs: refs})
}

func (s *Service) handleConfig(payload []byte) ([]byte, error) {
	cfg := s.engine.Config()
	var specs []ConfigSpec
	for _, sp := range cfg.Specs {
		var impls []ConfigImpl
		for _, im := range sp.Impls {
			impls = append(impls, ConfigImpl{Name: im.Name, Include: im.Include, Exclude: im.Exclude})
		}
		specs = append(specs, ConfigSpec{Name: sp.Name, Include: sp.Include, Exclude: sp.Exclude, Impls: impls})
	}
	return encodeOK(ConfigResult{Specs: specs})
}

func (s *Service) handleVFSOpen(payload []byte) ([]byte, error) {
	req, err := decode[VFSRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	s.engine.VFSOpen(req.Path, req.Content)
	return encodeOK(struct{}{})
}

func (s *Service) handleVFSChange(payload []byte) ([]byte, error) {
	req, err := decode[VFSRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	s.engine.VFSChange(req.Path, req.Content)
	return encodeOK(struct{}{})
}

func (s *Service) handleVFSClose(payload []byte) ([]byte, error) {
	req, err := decode[VFSRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	s.engine.VFSClose(req.Path)
	return encodeOK(struct{}{})
}

func (s *Service) handleReload(payload []byte) ([]byte, error) {
	v, elapsed, err := s.engine.Rebuild()
	if err != nil {
		return encodeError(rpcerrors.Internal(err))
	}
	return encodeOK(ReloadResult{Version: v, ElapsedMS: elapsed.Milliseconds()})
}

func (s *Service) handleVersion(payload []byte) ([]byte, error) {
	return encodeOK(s.engine.Version())
}

func (s *Service) handleSearch(payload []byte) ([]byte, error) {
	req, err := decode[SearchRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	results := s.engine.Search(req.Query, int(req.Limit))
	out := make([]SearchResultWire, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultWire{RuleID: r.RuleID, File: r.File, Line: r.Line, Score: r.Score})
	}
	return encodeOK(out)
}

func (s *Service) handleValidate(payload []byte) ([]byte, error) {
	req, err := decode[ValidateRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	outcome := validate.Run(s.engine.Snapshot(), req.RuleID)
	var findings []ValidateFindingWire
	for _, f := range outcome.Findings {
		findings = append(findings, findingToWire(f))
	}
	return encodeOK(ValidateResultWire{Blocked: outcome.Blocked, Findings: findings})
}

func (s *Service) handleIsTestFile(payload []byte) ([]byte, error) {
	req, err := decode[IsTestFileRequest](payload)
	if err != nil {
		return encodeError(rpcerrors.InvalidArgument("%v", err))
	}
	return encodeOK(looksLikeTestFile(req.Path))
}

func (s *Service) handleNotImplemented(payload []byte) ([]byte, error) {
	return encodeError(rpcerrors.NotImplemented("this method"))
}

func looksLikeTestFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, "_test.go") ||
		strings.Contains(lower, ".test.") ||
		strings.Contains(lower, "/test/") ||
		strings.Contains(lower, "/tests/") ||
		strings.HasSuffix(lower, "_spec.rb") ||
		strings.HasPrefix(lower, "test_") ||
		strings.Contains(lower, "/test_")
}

func refsToSummaries(occs []snapshot.RefOccurrence) []RefSummary {
	out := make([]RefSummary, 0, len(occs))
	for _, o := range occs {
		out = append(out, refOccToSummary(o))
	}
	return out
}

func refOccToSummary(o snapshot.RefOccurrence) RefSummary {
	return RefSummary{RuleID: o.RuleID, File: o.File, Line: o.Line, CodeUnit: o.CodeUnit, Verb: o.Verb.String()}
}
