package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/godot-bridge-go/internal/dispatch"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// forwarder relays queued events on its own goroutine so a slow MCP client
// never stalls the connection's read loop.
type forwarder struct {
	queue  chan *wire.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// StartForwarding relays every editor event to connected MCP sessions as a
// logging notification from logger "godot.<topic>". Calling it again while
// forwarding is a no-op.
//
// Events are queued and relayed in order. When the queue is full, new events
// are dropped with a warning.
func (s *Server) StartForwarding() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	f := &forwarder{
		queue:  make(chan *wire.Event, forwardQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.relayLoop(ctx, f)

	s.forwarder = f
	s.sub = s.cmd.OnEvent(dispatch.TopicAll, func(_ context.Context, ev *wire.Event) error {
		select {
		case f.queue <- ev:
		default:
			s.log.Warn("Dropping editor event, MCP clients are not keeping up", "topic", ev.Topic)
		}

		return nil
	})
}

// StopForwarding stops relaying editor events. Events still queued are
// discarded.
func (s *Server) StopForwarding() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return
	}

	s.sub.Unsubscribe()
	s.sub = nil

	s.forwarder.cancel()
	<-s.forwarder.done
	s.forwarder = nil
}

func (s *Server) relayLoop(ctx context.Context, f *forwarder) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.queue:
			if err := s.relay(ctx, ev); err != nil {
				s.log.Warn("Failed to forward editor event", "topic", ev.Topic, "error", err)
			}
		}
	}
}

func (s *Server) forward(ctx context.Context, ev *wire.Event) error {
	var data any
	if err := ev.Decode(&data); err != nil {
		return err
	}

	if data == nil {
		data = map[string]any{}
	}

	params := &mcp.LoggingMessageParams{
		Level:  "info",
		Logger: eventLoggerPrefix + ev.Topic,
		Data:   data,
	}

	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	var errs []error

	for ss := range s.mcp.Sessions() {
		if err := ss.Log(ctx, params); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
