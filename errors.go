package godotbridge

import "github.com/wagiedev/godot-bridge-go/internal/errors"

// Re-export error types from internal package

// ConnectError indicates the editor link could not be established. It matches ErrNotConnected.
type ConnectError = errors.ConnectError

// TimeoutError indicates a command got no reply in time. It matches ErrRequestTimeout.
type TimeoutError = errors.TimeoutError

// RemoteError is an error reported by the editor for a command.
type RemoteError = errors.RemoteError

// ProtocolError indicates a reply that could not be interpreted.
type ProtocolError = errors.ProtocolError

// DecodeError indicates an inbound frame that could not be parsed.
type DecodeError = errors.DecodeError

// BridgeError is the base interface for all typed bridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates there is no live connection and none could be established.
	ErrNotConnected = errors.ErrNotConnected

	// ErrConnectionLost indicates the link dropped while a command was pending.
	ErrConnectionLost = errors.ErrConnectionLost

	// ErrConnectionClosed indicates pending commands were failed by Disconnect or Close.
	// It matches ErrConnectionLost.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrRequestTimeout indicates a command timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrClosed indicates the connection has been closed and cannot be reused.
	ErrClosed = errors.ErrClosed

	// ErrDuplicateID indicates a correlation id was registered twice.
	ErrDuplicateID = errors.ErrDuplicateID
)
