// Package errors defines error types for the editor bridge.
//
// This package provides sentinel errors and structured error types for every
// way a command can fail: no connection, connection loss while pending, reply
// timeout, an error reported by the editor, and malformed replies. All error
// types support unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors
