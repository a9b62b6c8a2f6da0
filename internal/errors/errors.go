package errors

import (
	"errors"
	"fmt"
	"time"
)

// BridgeError is the base interface for all typed bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*ConnectError)(nil)
	_ BridgeError = (*TimeoutError)(nil)
	_ BridgeError = (*RemoteError)(nil)
	_ BridgeError = (*ProtocolError)(nil)
	_ BridgeError = (*DecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates there is no live connection and none could be established.
	ErrNotConnected = errors.New("not connected to editor")

	// ErrConnectionLost indicates the connection dropped while a command was pending.
	ErrConnectionLost = errors.New("connection lost")

	// ErrConnectionClosed indicates the connection was closed on request.
	// It matches ErrConnectionLost under errors.Is.
	ErrConnectionClosed = fmt.Errorf("%w: connection closed", ErrConnectionLost)

	// ErrRequestTimeout indicates no reply arrived before the command deadline.
	ErrRequestTimeout = errors.New("command timeout")

	// ErrClosed indicates the connection has been shut down and cannot be reused.
	ErrClosed = errors.New("connection shut down: create a new one with New()")

	// ErrDuplicateID indicates a correlation id was registered twice.
	ErrDuplicateID = errors.New("duplicate correlation id")

	// ErrLinkClosed indicates a write or read on a link that is no longer open.
	ErrLinkClosed = errors.New("link closed")

	// ErrUnknownMessage indicates an inbound message matched neither the reply nor the event shape.
	ErrUnknownMessage = errors.New("unrecognized message shape")
)

// ConnectError indicates a failure to establish the editor link.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to editor at %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is reports ConnectError as a kind of ErrNotConnected.
func (e *ConnectError) Is(target error) bool {
	return target == ErrNotConnected
}

// IsBridgeError implements BridgeError.
func (e *ConnectError) IsBridgeError() bool { return true }

// TimeoutError indicates a command received no reply within its deadline.
type TimeoutError struct {
	ID      uint64
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q (id %d) timed out after %s", e.Command, e.ID, e.Timeout)
}

// Is reports TimeoutError as a kind of ErrRequestTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}

// IsBridgeError implements BridgeError.
func (e *TimeoutError) IsBridgeError() bool { return true }

// RemoteError carries an error reported by the editor in its reply.
type RemoteError struct {
	ID      uint64
	Command string
	Message string
	Code    string
	Data    map[string]any
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("editor error [%s]: %s", e.Code, e.Message)
	}

	return "editor error: " + e.Message
}

// IsBridgeError implements BridgeError.
func (e *RemoteError) IsBridgeError() bool { return true }

// ProtocolError indicates a reply correlated to a command could not be interpreted.
type ProtocolError struct {
	ID      uint64
	Command string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply to %q (id %d): %v", e.Command, e.ID, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProtocolError) IsBridgeError() bool { return true }

// DecodeError indicates an inbound message could not be decoded.
// This error preserves the raw text that failed to decode.
type DecodeError struct {
	RawData string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode editor message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *DecodeError) IsBridgeError() bool { return true }
