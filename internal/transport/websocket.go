package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
)

// DefaultReadLimit is the largest inbound frame accepted when no limit is configured.
const DefaultReadLimit int64 = 16 * 1024 * 1024 // 16MB

// WebSocketDialer dials the editor's WebSocket endpoint.
type WebSocketDialer struct {
	log       *slog.Logger
	url       string
	readLimit int64
	header    http.Header
}

// Compile-time verification that the WebSocket types implement the interfaces.
var (
	_ Dialer = (*WebSocketDialer)(nil)
	_ Link   = (*WebSocketLink)(nil)
)

// NewWebSocketDialer creates a dialer for url.
//
// A readLimit of zero or less selects DefaultReadLimit. The header is sent
// with the opening handshake and may be nil.
func NewWebSocketDialer(log *slog.Logger, url string, readLimit int64, header http.Header) *WebSocketDialer {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}

	return &WebSocketDialer{
		log:       log.With("component", "websocket"),
		url:       url,
		readLimit: readLimit,
		header:    header,
	}
}

// URL returns the endpoint the dialer connects to.
func (d *WebSocketDialer) URL() string { return d.url }

// Dial opens a new WebSocket link.
//
// Returns *errors.ConnectError if the handshake fails or ctx ends first.
func (d *WebSocketDialer) Dial(ctx context.Context) (Link, error) {
	d.log.Debug("Dialing editor", "url", d.url)

	conn, resp, err := websocket.Dial(ctx, d.url, &websocket.DialOptions{
		HTTPHeader: d.header,
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		d.log.Debug("Dial failed", "url", d.url, "http_status", status, "error", err)

		return nil, &errors.ConnectError{URL: d.url, Err: err}
	}

	conn.SetReadLimit(d.readLimit)

	d.log.Debug("WebSocket handshake complete", "url", d.url)

	return &WebSocketLink{
		log:  d.log,
		conn: conn,
	}, nil
}

// WebSocketLink is a Link over one WebSocket connection.
type WebSocketLink struct {
	log  *slog.Logger
	conn *websocket.Conn

	writeMu sync.Mutex  // Serializes writes
	closing atomic.Bool // Whether Close() has been called (intentional shutdown)
}

// ReadMessages reads frames until the socket fails or is closed.
//
// Text and binary frames are both delivered; the editor plugin sends text.
// A remote close or read failure is reported once on the error channel.
func (l *WebSocketLink) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	messages := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)
		defer l.log.Debug("ReadMessages goroutine stopped")

		messageCount := 0

		for {
			typ, data, err := l.conn.Read(ctx)
			if err != nil {
				if l.closing.Load() {
					l.log.Debug("Link closed during shutdown")

					return
				}

				if ctx.Err() != nil {
					errs <- ctx.Err()

					return
				}

				errs <- l.readError(err)

				return
			}

			messageCount++
			l.log.Debug("Received frame", "type", typ.String(), "data_len", len(data), "message_count", messageCount)

			select {
			case messages <- data:
			case <-ctx.Done():
				l.log.Debug("Context cancelled during message send", "error", ctx.Err())

				errs <- ctx.Err()

				return
			}
		}
	}()

	return messages, errs
}

// readError describes why the read side stopped.
func (l *WebSocketLink) readError(err error) error {
	if status := websocket.CloseStatus(err); status != -1 {
		l.log.Info("Editor closed the connection", "status", status.String())

		return fmt.Errorf("remote closed (%s): %w", status, err)
	}

	l.log.Warn("Read from editor failed", "error", err)

	return fmt.Errorf("read frame: %w", err)
}

// SendMessage writes data as one text frame.
//
// This method is safe for concurrent use. After Close it returns ErrLinkClosed.
func (l *WebSocketLink) SendMessage(ctx context.Context, data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.closing.Load() {
		return errors.ErrLinkClosed
	}

	if err := l.conn.Write(ctx, websocket.MessageText, data); err != nil {
		l.log.Error("Failed to write frame", "error", err)

		return fmt.Errorf("write frame: %w", err)
	}

	l.log.Debug("Frame sent", "data_len", len(data))

	return nil
}

// Ping sends a WebSocket ping and waits for the pong.
// It requires ReadMessages to be running.
func (l *WebSocketLink) Ping(ctx context.Context) error {
	if l.closing.Load() {
		return errors.ErrLinkClosed
	}

	if err := l.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return nil
}

// Close performs the closing handshake. It's safe to call Close multiple times.
func (l *WebSocketLink) Close() error {
	if !l.closing.CompareAndSwap(false, true) {
		return nil
	}

	l.log.Debug("Closing link")

	err := l.conn.Close(websocket.StatusNormalClosure, "bridge disconnecting")
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		_ = l.conn.CloseNow()

		if stderrors.Is(err, net.ErrClosed) {
			return nil
		}

		return fmt.Errorf("close link: %w", err)
	}

	return nil
}
