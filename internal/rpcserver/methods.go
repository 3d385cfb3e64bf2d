// Package rpcserver dispatches decoded unary RPC requests to the
// traceability service facade, keyed by a stable integer method id
// (rather than the string-method dispatch the teacher's MCP registry
// used, since this protocol's Request carries a numeric method_id).
package rpcserver

// Method ids are stable across versions; append new methods, never
// renumber existing ones.
const (
	MethodStatus uint32 = iota + 1
	MethodForward
	MethodReverse
	MethodSpecContent
	MethodFile
	MethodUncovered
	MethodUntested
	MethodUnmapped
	MethodRule
	MethodConfig
	MethodVFSOpen
	MethodVFSChange
	MethodVFSClose
	MethodReload
	MethodVersion
	MethodSearch
	MethodValidate
	MethodIsTestFile
	MethodAddInclude
	MethodAddExclude
	MethodSubscribe
	MethodUpdateFileRange
)

// MethodName returns a human-readable name for logging; unknown ids
// return "unknown".
func MethodName(id uint32) string {
	name, ok := methodNames[id]
	if !ok {
		return "unknown"
	}
	return name
}

var methodNames = map[uint32]string{
	MethodStatus:          "status",
	MethodForward:         "forward",
	MethodReverse:         "reverse",
	MethodSpecContent:     "spec_content",
	MethodFile:            "file",
	MethodUncovered:       "uncovered",
	MethodUntested:        "untested",
	MethodUnmapped:        "unmapped",
	MethodRule:            "rule",
	MethodConfig:          "config",
	MethodVFSOpen:         "vfs_open",
	MethodVFSChange:       "vfs_change",
	MethodVFSClose:        "vfs_close",
	MethodReload:          "reload",
	MethodVersion:         "version",
	MethodSearch:          "search",
	MethodValidate:        "validate",
	MethodIsTestFile:      "is_test_file",
	MethodAddInclude:      "add_include",
	MethodAddExclude:      "add_exclude",
	MethodSubscribe:       "subscribe",
	MethodUpdateFileRange: "update_file_range",
}
