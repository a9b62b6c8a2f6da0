package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/transport"
)

// Runtime defaults.
const (
	DefaultURL                = "ws://localhost:9080"
	DefaultConnectTimeout     = 10 * time.Second
	DefaultCommandTimeout     = 20 * time.Second
	DefaultReconnectBaseDelay = 500 * time.Millisecond
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultSweepInterval      = time.Second
)

// Options configures a connection to the editor.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// URL is the editor's WebSocket endpoint.
	URL string

	// Header is sent with the WebSocket opening handshake.
	Header http.Header

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration

	// CommandTimeout is the default time a command waits for its reply.
	CommandTimeout time.Duration

	// AutoReconnect lets a command connect implicitly when no link is up and
	// restarts the link in the background after an unexpected disconnect.
	AutoReconnect bool

	// ReconnectBaseDelay is the delay before the first reconnect attempt.
	// Each further attempt doubles it, up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration

	// ReconnectMaxDelay caps the backoff between reconnect attempts.
	ReconnectMaxDelay time.Duration

	// MaxReconnectAttempts stops background reconnection after this many
	// consecutive failures. Zero retries forever.
	MaxReconnectAttempts int

	// SweepInterval is the backstop period of the timeout sweeper.
	SweepInterval time.Duration

	// PingInterval enables keepalive pings when positive.
	PingInterval time.Duration

	// ReadLimit is the largest inbound frame accepted, in bytes.
	// Zero selects transport.DefaultReadLimit.
	ReadLimit int64

	// Dialer allows injecting a custom link implementation.
	// If nil, a WebSocket dialer for URL is created automatically.
	Dialer transport.Dialer `json:"-"`
}

// DefaultOptions returns Options populated with the runtime defaults.
func DefaultOptions() *Options {
	return &Options{
		URL:                DefaultURL,
		ConnectTimeout:     DefaultConnectTimeout,
		CommandTimeout:     DefaultCommandTimeout,
		AutoReconnect:      true,
		ReconnectBaseDelay: DefaultReconnectBaseDelay,
		ReconnectMaxDelay:  DefaultReconnectMaxDelay,
		SweepInterval:      DefaultSweepInterval,
	}
}

// Normalize fills zero-valued durations and an empty URL with defaults.
// Boolean and count fields are left as set.
func (o *Options) Normalize() {
	if o.URL == "" {
		o.URL = DefaultURL
	}

	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}

	if o.CommandTimeout == 0 {
		o.CommandTimeout = DefaultCommandTimeout
	}

	if o.ReconnectBaseDelay == 0 {
		o.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}

	if o.ReconnectMaxDelay == 0 {
		o.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	if o.SweepInterval == 0 {
		o.SweepInterval = DefaultSweepInterval
	}
}

// Validate reports the first setting that cannot be used.
func (o *Options) Validate() error {
	if o.Dialer == nil {
		if err := validateURL(o.URL); err != nil {
			return err
		}
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"connect timeout", o.ConnectTimeout},
		{"command timeout", o.CommandTimeout},
		{"reconnect base delay", o.ReconnectBaseDelay},
		{"reconnect max delay", o.ReconnectMaxDelay},
		{"sweep interval", o.SweepInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if o.PingInterval < 0 {
		return fmt.Errorf("ping interval must not be negative, got %s", o.PingInterval)
	}

	if o.ReconnectMaxDelay < o.ReconnectBaseDelay {
		return errors.New("reconnect max delay must not be shorter than the base delay")
	}

	if o.MaxReconnectAttempts < 0 {
		return errors.New("max reconnect attempts must not be negative")
	}

	if o.ReadLimit < 0 {
		return errors.New("read limit must not be negative")
	}

	return nil
}

// NewDialer returns the injected Dialer, or a WebSocket dialer for URL.
func (o *Options) NewDialer(log *slog.Logger) transport.Dialer {
	if o.Dialer != nil {
		return o.Dialer
	}

	return transport.NewWebSocketDialer(log, o.URL, o.ReadLimit, o.Header)
}
