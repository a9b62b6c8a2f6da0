package godotbridge

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/config"
	"github.com/wagiedev/godot-bridge-go/internal/transport"
)

// Options holds the connection settings assembled by Option values.
type Options = config.Options

// Dialer opens links to the editor. Supply one with WithDialer to replace
// the WebSocket transport.
type Dialer = transport.Dialer

// Link is one open message link to the editor.
type Link = transport.Link

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options on top of the defaults.
func applyOptions(opts []Option) *Options {
	options := config.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithURL sets the editor WebSocket URL. Defaults to ws://localhost:9080.
func WithURL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}

// WithHeader sets extra HTTP headers sent with the WebSocket handshake.
func WithHeader(header http.Header) Option {
	return func(o *Options) {
		o.Header = header
	}
}

// WithOptions replaces all settings with a copy of opts, typically built from
// a config file. Later options still apply on top.
func WithOptions(opts *Options) Option {
	return func(o *Options) {
		if opts != nil {
			*o = *opts
		}
	}
}

// ===== Timeouts =====

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithCommandTimeout sets the default time a command waits for its reply.
// Override it per call with WithTimeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CommandTimeout = d
	}
}

// WithSweepInterval sets how often expired commands are swept as a backstop
// to the deadline timer.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Options) {
		o.SweepInterval = d
	}
}

// ===== Reconnection =====

// WithAutoReconnect controls whether a lost link is re-established in the
// background and whether SendCommand connects implicitly. Enabled by default.
func WithAutoReconnect(enabled bool) Option {
	return func(o *Options) {
		o.AutoReconnect = enabled
	}
}

// WithReconnectBackoff sets the first reconnect delay and the cap it doubles up to.
func WithReconnectBackoff(base, maxDelay time.Duration) Option {
	return func(o *Options) {
		o.ReconnectBaseDelay = base
		o.ReconnectMaxDelay = maxDelay
	}
}

// WithMaxReconnectAttempts limits consecutive failed reconnect attempts.
// Zero means retry until Disconnect or Close.
func WithMaxReconnectAttempts(n int) Option {
	return func(o *Options) {
		o.MaxReconnectAttempts = n
	}
}

// ===== Transport =====

// WithPingInterval enables WebSocket keepalive pings. A failed ping drops the link.
func WithPingInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PingInterval = d
	}
}

// WithReadLimit sets the maximum inbound message size in bytes.
func WithReadLimit(n int64) Option {
	return func(o *Options) {
		o.ReadLimit = n
	}
}

// WithDialer replaces the WebSocket transport. The URL is then ignored.
func WithDialer(d Dialer) Option {
	return func(o *Options) {
		o.Dialer = d
	}
}
