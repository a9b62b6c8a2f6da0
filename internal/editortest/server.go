package editortest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// ErrNoReply makes a handler leave the command unanswered.
var ErrNoReply = errors.New("editortest: no reply")

// HandlerFunc answers one command. A returned error is sent back as the
// reply's error message, except ErrNoReply which sends nothing.
type HandlerFunc func(cmd wire.Command) (any, error)

// Server is a fake editor endpoint.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	conns    map[*websocket.Conn]struct{}
	received []wire.Command
	accepted int
}

// NewServer starts a fake editor. Every command answers `{}` until a handler
// is registered for it with Handle, except "ping" which answers {"pong":true}.
func NewServer() *Server {
	s := &Server{
		handlers: map[string]HandlerFunc{
			"ping": func(wire.Command) (any, error) {
				return map[string]any{"pong": true}, nil
			},
		},
		conns: make(map[*websocket.Conn]struct{}),
	}

	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))

	return s
}

// URL returns the ws:// address of the fake.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Handle registers h for command, replacing any previous handler.
func (s *Server) Handle(command string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[command] = h
}

// Reply registers a handler that always answers command with payload.
func (s *Server) Reply(command string, payload any) {
	s.Handle(command, func(wire.Command) (any, error) { return payload, nil })
}

// Fail registers a handler that always answers command with message as an error.
func (s *Server) Fail(command, message string) {
	s.Handle(command, func(wire.Command) (any, error) { return nil, errors.New(message) })
}

// Received returns every command decoded so far, in arrival order.
func (s *Server) Received() []wire.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wire.Command, len(s.received))
	copy(out, s.received)

	return out
}

// Accepted returns how many client connections have been accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accepted
}

// Emit pushes an event to every connected client.
func (s *Server) Emit(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(map[string]any{"topic": topic, "payload": payload})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return s.broadcast(ctx, data)
}

// SendRaw writes data verbatim to every connected client.
func (s *Server) SendRaw(ctx context.Context, data string) error {
	return s.broadcast(ctx, []byte(data))
}

// DropConnections closes every client connection as if the editor quit.
func (s *Server) DropConnections() {
	for _, c := range s.snapshot() {
		_ = c.Close(websocket.StatusGoingAway, "editor closed")
	}
}

// Close drops every client and stops the server.
func (s *Server) Close() {
	for _, c := range s.snapshot() {
		_ = c.CloseNow()
	}

	s.srv.Close()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.accepted++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	ctx := r.Context()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}

		var cmd wire.Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.ID == "" {
			continue
		}

		reply, ok := s.answer(cmd)
		if !ok {
			continue
		}

		if err := c.Write(ctx, websocket.MessageText, reply); err != nil {
			return
		}
	}
}

// answer runs the handler for cmd and encodes the reply frame.
func (s *Server) answer(cmd wire.Command) ([]byte, bool) {
	s.mu.Lock()
	s.received = append(s.received, cmd)
	h, ok := s.handlers[cmd.Command]
	s.mu.Unlock()

	if !ok {
		h = func(wire.Command) (any, error) { return map[string]any{}, nil }
	}

	payload, err := h(cmd)

	var frame map[string]any

	switch {
	case errors.Is(err, ErrNoReply):
		return nil, false
	case err != nil:
		frame = map[string]any{"id": cmd.ID, "error": err.Error()}
	default:
		frame = map[string]any{"id": cmd.ID, "payload": payload}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		data, _ = json.Marshal(map[string]any{"id": cmd.ID, "error": err.Error()})
	}

	return data, true
}

func (s *Server) broadcast(ctx context.Context, data []byte) error {
	var errs []error

	for _, c := range s.snapshot() {
		if err := c.Write(ctx, websocket.MessageText, data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Server) snapshot() []*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}

	return out
}
