package godotbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/connection"
	"github.com/wagiedev/godot-bridge-go/internal/dispatch"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// TopicAll subscribes a handler to every event topic.
const TopicAll = dispatch.TopicAll

type (
	// Connection is a managed link to the editor. It is safe for concurrent use.
	Connection = connection.Connection

	// State is the lifecycle state of a Connection.
	State = connection.State

	// Status is a point-in-time snapshot of a Connection.
	Status = connection.Status

	// CommandOption configures a single SendCommand call.
	CommandOption = connection.CommandOption

	// Result is the payload of a successful command.
	Result = wire.Result

	// Event is an unsolicited editor notification.
	Event = wire.Event

	// EventHandler receives events delivered to a subscription.
	EventHandler = dispatch.Handler

	// Subscription is an event handler registration.
	Subscription = dispatch.Subscription
)

// Connection states.
const (
	StateDisconnected  = connection.StateDisconnected
	StateConnecting    = connection.StateConnecting
	StateConnected     = connection.StateConnected
	StateDisconnecting = connection.StateDisconnecting
)

// New creates a disconnected Connection. The link is opened by Connect or by
// the first SendCommand.
func New(opts ...Option) (*Connection, error) {
	options := applyOptions(opts)
	options.Normalize()

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return connection.New(options), nil
}

// WithTimeout overrides the command timeout for one SendCommand call.
func WithTimeout(d time.Duration) CommandOption {
	return connection.WithTimeout(d)
}

// WithConnection manages connection lifecycle with automatic cleanup.
//
// It creates a Connection, connects it, executes the callback and closes the
// Connection when done. If Close fails, a warning is logged but does not
// override the callback's error.
func WithConnection(ctx context.Context, fn func(*Connection) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	conn, err := New(opts...)
	if err != nil {
		return err
	}

	log := applyOptions(opts).Logger
	if log == nil {
		log = NopLogger()
	}

	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Warn("failed to close connection", "error", closeErr)
		}
	}()

	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	return fn(conn)
}
