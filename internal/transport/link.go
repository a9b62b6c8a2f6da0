package transport

import "context"

// Link is one established connection to the editor.
//
// A Link is used by exactly one reader (the goroutine draining ReadMessages)
// and any number of writers; implementations serialize writes.
type Link interface {
	// ReadMessages starts reading frames. The message channel yields each
	// inbound frame in arrival order. When reading stops, at most one error is
	// sent on the error channel and both channels are closed. A Link that was
	// closed locally closes the channels without an error.
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)

	// SendMessage writes one complete frame. It must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Ping checks that the remote end is still responsive.
	Ping(ctx context.Context) error

	// Close terminates the link. It is safe to call more than once.
	Close() error
}

// Dialer establishes new links.
//
// Implement this to provide custom links for testing or alternative
// transports. The default implementation is WebSocketDialer.
type Dialer interface {
	Dial(ctx context.Context) (Link, error)
}
