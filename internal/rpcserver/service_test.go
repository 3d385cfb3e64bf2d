package rpcserver

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"tracey/internal/engine"
	"tracey/internal/rpcerrors"
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

func newTestService(t *testing.T) *Service {
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
	e, err := engine.New(root, filepath.Join(root, ".config/tracey/config.styx"), "tracey", testLogger())
	require.NoError(t, err)
	return New(e)
}

func callOK[T any](t *testing.T, s *Service, method uint32, req any) T {
	t.Helper()
	var payload []byte
	if req != nil {
		p, err := msgpack.Marshal(req)
		require.NoError(t, err)
		payload = p
	}
	resp, err := s.Dispatch(method, payload)
	require.NoError(t, err)

	var envelope struct {
		Result T                `msgpack:"result"`
		Err    *rpcerrors.Error `msgpack:"error"`
	}
	require.NoError(t, msgpack.Unmarshal(resp, &envelope))
	require.Nil(t, envelope.Err)
	return envelope.Result
}

func TestDispatchStatus(t *testing.T) {
	s := newTestService(t)
	result := callOK[StatusResult](t, s, MethodStatus, nil)
	require.Equal(t, uint64(1), result.Version)
	require.Equal(t, 1, result.SpecCount)
}

func TestDispatchForwardDefaultsSpecImpl(t *testing.T) {
	s := newTestService(t)
	result := callOK[ForwardResult](t, s, MethodForward, SpecImplRequest{})
	require.Equal(t, "docs", result.Spec)
	require.Equal(t, "src", result.Impl)
	require.Equal(t, 1, result.Covered["auth.login"])
	require.Empty(t, result.Uncovered)
}

func TestDispatchReverseListsReferences(t *testing.T) {
	s := newTestService(t)
	result := callOK[ReverseResult](t, s, MethodReverse, SpecImplRequest{})
	require.Len(t, result.Refs, 1)
	require.Equal(t, "auth.login", result.Refs[0].RuleID)
}

func TestDispatchRuleLooksUpAcrossCoverages(t *testing.T) {
	s := newTestService(t)
	result := callOK[RuleInfo](t, s, MethodRule, RuleRequest{RuleID: "auth.login"})
	require.Equal(t, "auth.login", result.ID)
	require.Len(t, result.Defs, 1)
	require.Len(t, result.Refs, 1)
}

func TestDispatchVersionAndReload(t *testing.T) {
	s := newTestService(t)
	v := callOK[uint64](t, s, MethodVersion, nil)
	require.Equal(t, uint64(1), v)

	reload := callOK[ReloadResult](t, s, MethodReload, nil)
	require.Equal(t, uint64(2), reload.Version)
}

func TestDispatchVFSRoundTrip(t *testing.T) {
	s := newTestService(t)
	_, err := s.Dispatch(MethodVFSChange, mustPack(t, VFSRequest{
		Path:    "docs/auth.md",
		Content: "r[auth.login]\nmust log in\n\nr[auth.logout]\nmust log out\n",
	}))
	require.NoError(t, err)

	result := callOK[ForwardResult](t, s, MethodForward, SpecImplRequest{})
	require.Contains(t, result.Uncovered, RuleSummary{ID: "auth.logout", File: "docs/auth.md", Line: 4})
}

func TestDispatchValidate(t *testing.T) {
	s := newTestService(t)
	result := callOK[ValidateResultWire](t, s, MethodValidate, ValidateRequest{})
	require.False(t, result.Blocked)
}

func TestDispatchIsTestFile(t *testing.T) {
	s := newTestService(t)
	require.True(t, callOK[bool](t, s, MethodIsTestFile, IsTestFileRequest{Path: "internal/foo/bar_test.go"}))
	require.False(t, callOK[bool](t, s, MethodIsTestFile, IsTestFileRequest{Path: "internal/foo/bar.go"}))
}

func TestDispatchUnknownMethod(t *testing.T) {
	s := newTestService(t)
	resp, err := s.Dispatch(9999, nil)
	require.NoError(t, err)

	var envelope struct {
		Err *rpcerrors.Error `msgpack:"error"`
	}
	require.NoError(t, msgpack.Unmarshal(resp, &envelope))
	require.NotNil(t, envelope.Err)
	require.Equal(t, rpcerrors.CodeInvalidArgument, envelope.Err.Code)
}

func TestDispatchSubscribeNotImplemented(t *testing.T) {
	s := newTestService(t)
	resp, err := s.Dispatch(MethodSubscribe, nil)
	require.NoError(t, err)

	var envelope struct {
		Err *rpcerrors.Error `msgpack:"error"`
	}
	require.NoError(t, msgpack.Unmarshal(resp, &envelope))
	require.NotNil(t, envelope.Err)
	require.Equal(t, rpcerrors.CodeNotImplemented, envelope.Err.Code)
}

func mustPack(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return b
}
