// Package rpcerrors defines the daemon's RPC-level error taxonomy,
// carried in-band on a Response rather than as a transport-level Goodbye.
package rpcerrors

import "fmt"

// Code enumerates stable RPC error categories.
type Code int

const (
	CodeNotFound Code = iota
	CodeInvalidArgument
	CodeNotImplemented
	CodeInternal
)

// Error is the wire-visible RPC error shape.
type Error struct {
	Code    Code   `msgpack:"code"`
	Message string `msgpack:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NotFound builds a CodeNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds a CodeInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotImplemented builds a CodeNotImplemented error.
func NotImplemented(method string) *Error {
	return &Error{Code: CodeNotImplemented, Message: method + " is not implemented"}
}

// Internal builds a CodeInternal error.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: err.Error()}
}
