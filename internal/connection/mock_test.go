package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/config"
	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/transport"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// mockLink is an in-memory transport.Link driven by the test.
type mockLink struct {
	inbound chan []byte
	failed  chan error
	closed  chan struct{}
	sent    chan wire.Command

	closeOnce sync.Once
	sendErr   atomic.Pointer[error]
	pingErr   atomic.Pointer[error]
}

var _ transport.Link = (*mockLink)(nil)

func newMockLink() *mockLink {
	return &mockLink{
		inbound: make(chan []byte, 64),
		failed:  make(chan error, 1),
		closed:  make(chan struct{}),
		sent:    make(chan wire.Command, 256),
	}
}

func (l *mockLink) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	messages := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)

		for {
			select {
			case data := <-l.inbound:
				select {
				case messages <- data:
				case <-l.closed:
					return
				case <-ctx.Done():
					errs <- ctx.Err()

					return
				}
			case err := <-l.failed:
				errs <- err

				return
			case <-l.closed:
				return
			case <-ctx.Done():
				errs <- ctx.Err()

				return
			}
		}
	}()

	return messages, errs
}

func (l *mockLink) SendMessage(_ context.Context, data []byte) error {
	select {
	case <-l.closed:
		return errors.ErrLinkClosed
	default:
	}

	if err := l.sendErr.Load(); err != nil {
		return *err
	}

	var cmd wire.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("mock link: %w", err)
	}

	l.sent <- cmd

	return nil
}

func (l *mockLink) Ping(context.Context) error {
	if err := l.pingErr.Load(); err != nil {
		return *err
	}

	return nil
}

func (l *mockLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })

	return nil
}

// deliver pushes a raw inbound frame.
func (l *mockLink) deliver(frame string) {
	l.inbound <- []byte(frame)
}

// reply answers cmd with a success payload.
func (l *mockLink) reply(cmd wire.Command, payload string) {
	l.deliver(fmt.Sprintf(`{"id":%q,"payload":%s}`, cmd.ID, payload))
}

// drop simulates the editor going away.
func (l *mockLink) drop(err error) {
	l.failed <- err
}

func (l *mockLink) failSends(err error) {
	l.sendErr.Store(&err)
}

func (l *mockLink) failPings(err error) {
	l.pingErr.Store(&err)
}

func (l *mockLink) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// nextSent waits for the next command written to the link.
func (l *mockLink) nextSent(t *testing.T) wire.Command {
	t.Helper()

	select {
	case cmd := <-l.sent:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command was sent")

		return wire.Command{}
	}
}

// mockDialer hands out mockLinks and counts attempts.
type mockDialer struct {
	mu    sync.Mutex
	errs  []error // consumed in order; nil entries succeed
	gate  chan struct{}
	links []*mockLink

	dials  atomic.Int32
	dialed chan *mockLink
}

var _ transport.Dialer = (*mockDialer)(nil)

func newMockDialer(errs ...error) *mockDialer {
	return &mockDialer{
		errs:   errs,
		dialed: make(chan *mockLink, 16),
	}
}

// hold makes Dial block until release is called.
func (d *mockDialer) hold() {
	d.mu.Lock()
	d.gate = make(chan struct{})
	d.mu.Unlock()
}

func (d *mockDialer) release() {
	d.mu.Lock()
	close(d.gate)
	d.gate = nil
	d.mu.Unlock()
}

func (d *mockDialer) Dial(ctx context.Context) (transport.Link, error) {
	d.dials.Add(1)

	d.mu.Lock()
	gate := d.gate

	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
		d.errs = d.errs[1:]
	}
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	link := newMockLink()

	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()

	d.dialed <- link

	return link, nil
}

// nextLink waits for the next successfully dialed link.
func (d *mockDialer) nextLink(t *testing.T) *mockLink {
	t.Helper()

	select {
	case link := <-d.dialed:
		return link
	case <-time.After(2 * time.Second):
		t.Fatal("no link was dialed")

		return nil
	}
}

// testOptions returns fast options wired to dialer.
func testOptions(dialer transport.Dialer) *config.Options {
	opts := config.DefaultOptions()
	opts.Dialer = dialer
	opts.ConnectTimeout = time.Second
	opts.CommandTimeout = 2 * time.Second
	opts.ReconnectBaseDelay = 10 * time.Millisecond
	opts.ReconnectMaxDelay = 50 * time.Millisecond
	opts.SweepInterval = 10 * time.Millisecond

	return opts
}

// newTestConnection creates a Connection that is closed when the test ends.
func newTestConnection(t *testing.T, opts *config.Options) *Connection {
	t.Helper()

	c := New(opts)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

type sendResult struct {
	result *wire.Result
	err    error
}

// sendAsync runs SendCommand in a goroutine.
func sendAsync(c *Connection, name string, params map[string]any, opts ...CommandOption) <-chan sendResult {
	out := make(chan sendResult, 1)

	go func() {
		res, err := c.SendCommand(context.Background(), name, params, opts...)
		out <- sendResult{result: res, err: err}
	}()

	return out
}

func await(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("SendCommand did not return")

		return sendResult{}
	}
}
