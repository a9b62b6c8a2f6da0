package dispatch

import (
	"context"
	"log/slog"

	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// Route describes what the Dispatcher did with a frame.
type Route int

const (
	// RouteReply means the frame resolved a pending command.
	RouteReply Route = iota
	// RouteOrphanReply means the frame was a reply for no pending command and was discarded.
	RouteOrphanReply
	// RouteEvent means the frame was published to event handlers.
	RouteEvent
	// RouteInvalid means the frame could not be decoded and was discarded.
	RouteInvalid
)

func (r Route) String() string {
	switch r {
	case RouteReply:
		return "reply"
	case RouteOrphanReply:
		return "orphan_reply"
	case RouteEvent:
		return "event"
	case RouteInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Resolver completes pending commands. It is satisfied by *correlation.Table.
type Resolver interface {
	Resolve(id uint64, reply *wire.Reply) bool
}

// Dispatcher decides whether an inbound frame is a reply or an event and routes it.
type Dispatcher struct {
	log      *slog.Logger
	resolver Resolver
	events   *Registry
}

// NewDispatcher creates a dispatcher that resolves replies through resolver
// and publishes events to events.
func NewDispatcher(log *slog.Logger, resolver Resolver, events *Registry) *Dispatcher {
	return &Dispatcher{
		log:      log.With("component", "dispatcher"),
		resolver: resolver,
		events:   events,
	}
}

// Dispatch decodes one frame and routes it. Undecodable frames are logged and
// dropped; they never affect pending commands or the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) Route {
	msg, err := wire.Decode(data)
	if err != nil {
		d.log.Warn("Discarding undecodable message", "error", err, "data_len", len(data))

		return RouteInvalid
	}

	switch m := msg.(type) {
	case *wire.Reply:
		if !d.resolver.Resolve(m.ID, m) {
			return RouteOrphanReply
		}

		return RouteReply

	case *wire.Event:
		delivered := d.events.Publish(ctx, m)
		d.log.Debug("Dispatched event", "topic", m.Topic, "delivered", delivered)

		return RouteEvent

	default:
		d.log.Warn("Discarding message of unexpected kind")

		return RouteInvalid
	}
}
