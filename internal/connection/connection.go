package connection

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/godot-bridge-go/internal/config"
	"github.com/wagiedev/godot-bridge-go/internal/correlation"
	"github.com/wagiedev/godot-bridge-go/internal/dispatch"
	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/transport"
)

// Connection is the single logical connection to the editor.
//
// A Connection is created disconnected. It connects on Connect, or on the
// first SendCommand when AutoReconnect is enabled. Close releases it for good.
type Connection struct {
	log        *slog.Logger
	opts       *config.Options
	dialer     transport.Dialer
	table      *correlation.Table
	events     *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	backoff    Backoff

	nextID       atomic.Uint64
	lastActivity atomic.Int64 // unix nanoseconds

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // sweeper, link supervisors and reconnect loops

	mu        sync.Mutex
	state     State
	link      *activeLink
	attempt   *attempt
	reconnect *reconnector
	connected chan struct{} // closed when the current link comes up, replaced when it goes down
	closed    bool          // Tracks if Close() has been called
}

// attempt is one in-flight connection attempt shared by every waiter.
type attempt struct {
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
	abandoned bool // Set under Connection.mu when Disconnect or Close supersedes the attempt
}

func (a *attempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New creates a disconnected Connection.
//
// The timeout sweeper starts immediately; call Close to stop it.
func New(opts *config.Options) *Connection {
	if opts == nil {
		opts = config.DefaultOptions()
	}

	opts.Normalize()

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		log:    log.With("component", "connection"),
		opts:   opts,
		dialer: opts.NewDialer(log),
		table:  correlation.NewTable(log),
		events: dispatch.NewRegistry(log),
		backoff: Backoff{
			Base:   opts.ReconnectBaseDelay,
			Max:    opts.ReconnectMaxDelay,
			Jitter: defaultJitter,
		},
		ctx:       ctx,
		cancel:    cancel,
		state:     StateDisconnected,
		connected: make(chan struct{}),
	}

	c.dispatcher = dispatch.NewDispatcher(log, c.table, c.events)

	c.wg.Go(func() {
		c.table.Run(ctx, opts.SweepInterval)
	})

	return c
}

// Connect establishes the link if it is not already up.
//
// Concurrent callers share one attempt. A failed attempt returns
// *errors.ConnectError, which matches ErrNotConnected; Connect never retries.
func (c *Connection) Connect(ctx context.Context) error {
	a, err := c.beginAttempt()
	if err != nil {
		return err
	}

	if a == nil {
		return nil
	}

	return a.wait(ctx)
}

// ConnectWithRetry connects, retrying failed attempts with the reconnect
// backoff until it succeeds, ctx is done, or MaxReconnectAttempts attempts
// have failed. It returns the last attempt's error.
func (c *Connection) ConnectWithRetry(ctx context.Context) error {
	return c.connectLoop(ctx, false)
}

// Disconnect closes the link and fails every pending command with
// ErrConnectionClosed. It also stops background reconnection and abandons
// an attempt in progress. The Connection can be connected again afterwards.
func (c *Connection) Disconnect() error {
	c.mu.Lock()

	c.stopReconnectLocked()
	c.abandonAttemptLocked()

	c.table.DrainAll(errors.ErrConnectionClosed)

	al := c.link
	if al == nil {
		c.state = StateDisconnected
		c.mu.Unlock()

		return nil
	}

	c.link = nil
	c.state = StateDisconnecting
	c.connected = make(chan struct{})
	c.mu.Unlock()

	c.log.Info("Disconnecting from editor", "link_id", al.id.String())

	err := al.close()

	c.mu.Lock()
	if c.state == StateDisconnecting {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("close link: %w", err)
	}

	return nil
}

// Close disconnects and shuts the Connection down permanently.
//
// Further calls to Connect and SendCommand fail with ErrClosed. Close waits
// for background goroutines to exit, so it must not be called from an event
// handler. It's safe to call Close multiple times.
func (c *Connection) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	c.mu.Unlock()

	err := c.Disconnect()

	c.cancel()
	c.wg.Wait()

	c.log.Debug("Connection closed")

	return err
}

// IsConnected reports whether a link is currently up.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.link != nil
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Status returns a snapshot of the connection.
func (c *Connection) Status() Status {
	c.mu.Lock()

	st := Status{
		State:        c.state,
		Reconnecting: c.reconnect != nil,
	}

	if al := c.link; al != nil {
		st.LinkID = al.id.String()
		st.ConnectedAt = al.connectedAt
	}

	c.mu.Unlock()

	if ws, ok := c.dialer.(*transport.WebSocketDialer); ok {
		st.URL = ws.URL()
	}

	if ts := c.lastActivity.Load(); ts != 0 {
		st.LastActivity = time.Unix(0, ts)
	}

	st.Pending = c.table.Len()

	return st
}

// WaitConnected blocks until a link is up or ctx is done.
// It does not start a connection attempt.
func (c *Connection) WaitConnected(ctx context.Context) error {
	for {
		c.mu.Lock()

		if c.closed {
			c.mu.Unlock()

			return errors.ErrClosed
		}

		if c.link != nil {
			c.mu.Unlock()

			return nil
		}

		ch := c.connected
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// OnEvent subscribes handler to an event topic. Use dispatch.TopicAll to
// receive every event. Subscriptions survive reconnection.
//
// Handlers run on the read loop, so a handler must not wait on SendCommand;
// start a goroutine instead.
func (c *Connection) OnEvent(topic string, handler dispatch.Handler) *dispatch.Subscription {
	return c.events.Subscribe(topic, handler)
}

// beginAttempt returns the attempt to wait on, starting one if needed.
// It returns nil when a link is already up.
func (c *Connection) beginAttempt() (*attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClosed
	}

	return c.beginAttemptLocked(), nil
}

// beginAttemptLocked is beginAttempt for callers holding c.mu.
func (c *Connection) beginAttemptLocked() *attempt {
	if c.link != nil {
		return nil
	}

	if c.attempt != nil {
		return c.attempt
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.ConnectTimeout)

	a := &attempt{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	c.attempt = a
	c.state = StateConnecting

	c.wg.Go(func() {
		c.runAttempt(ctx, a)
	})

	return a
}

// runAttempt dials once and installs the link if the attempt is still current.
func (c *Connection) runAttempt(ctx context.Context, a *attempt) {
	defer close(a.done)
	defer a.cancel()

	c.log.Debug("Connecting to editor")

	link, err := c.dialer.Dial(ctx)

	c.mu.Lock()

	if c.attempt == a {
		c.attempt = nil
	}

	if a.abandoned {
		if err == nil {
			_ = link.Close()
		}

		err = errors.ErrConnectionClosed
	}

	if err != nil {
		if !a.abandoned && c.state == StateConnecting {
			c.state = StateDisconnected
		}

		c.mu.Unlock()

		a.err = c.connectError(err)
		c.log.Debug("Connection attempt failed", "error", err)

		return
	}

	al := c.startLinkLocked(link)
	c.mu.Unlock()

	c.log.Info("Connected to editor", "link_id", al.id.String())
}

// connectError wraps err as a ConnectError unless it already is one.
func (c *Connection) connectError(err error) error {
	if _, ok := stderrors.AsType[*errors.ConnectError](err); ok {
		return err
	}

	url := ""
	if ws, ok := c.dialer.(*transport.WebSocketDialer); ok {
		url = ws.URL()
	}

	return &errors.ConnectError{URL: url, Err: err}
}

// abandonAttemptLocked detaches an in-flight attempt so that its link, if it
// comes up, is closed instead of installed.
func (c *Connection) abandonAttemptLocked() {
	a := c.attempt
	if a == nil {
		return
	}

	a.abandoned = true
	a.cancel()
	c.attempt = nil
	c.state = StateDisconnected
}

// currentLink returns the live link, or nil.
func (c *Connection) currentLink() *activeLink {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.link
}

// touch records inbound activity.
func (c *Connection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func newLinkID() ulid.ULID {
	return ulid.Make()
}
