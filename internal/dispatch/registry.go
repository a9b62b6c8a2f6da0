package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// TopicAll subscribes a handler to every event topic.
const TopicAll = "*"

// Handler receives an event pushed by the editor.
type Handler func(ctx context.Context, ev *wire.Event) error

// Subscription is a handler registered for a topic.
// It stays registered across reconnections until Unsubscribe is called.
type Subscription struct {
	id       uint64
	topic    string
	handler  Handler
	registry *Registry
}

// Topic returns the topic the subscription listens on.
func (s *Subscription) Topic() string { return s.topic }

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.registry.remove(s)
}

// Registry holds event subscriptions keyed by topic.
type Registry struct {
	log *slog.Logger

	mu      sync.RWMutex
	nextID  uint64
	byTopic map[string][]*Subscription
}

// NewRegistry creates an empty subscription registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:     log.With("component", "events"),
		byTopic: make(map[string][]*Subscription, 8),
	}
}

// Subscribe registers handler for topic. Use TopicAll to receive every event.
func (r *Registry) Subscribe(topic string, handler Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	sub := &Subscription{
		id:       r.nextID,
		topic:    topic,
		handler:  handler,
		registry: r,
	}

	r.byTopic[topic] = append(r.byTopic[topic], sub)
	r.log.Debug("Registered event handler", "topic", topic, "subscription_id", sub.id)

	return sub
}

// Count returns the number of handlers subscribed to exactly topic.
func (r *Registry) Count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byTopic[topic])
}

// Publish invokes every handler for the event topic, then every TopicAll
// handler, in subscription order. It returns how many handlers completed
// without error.
func (r *Registry) Publish(ctx context.Context, ev *wire.Event) int {
	r.mu.RLock()

	targets := slices.Clone(r.byTopic[ev.Topic])
	if ev.Topic != TopicAll {
		targets = append(targets, r.byTopic[TopicAll]...)
	}

	r.mu.RUnlock()

	if len(targets) == 0 {
		r.log.Debug("No handlers for event", "topic", ev.Topic)

		return 0
	}

	delivered := 0

	for _, sub := range targets {
		if err := r.invoke(ctx, sub, ev); err != nil {
			r.log.Warn("Event handler failed",
				"topic", ev.Topic,
				"subscription_id", sub.id,
				"error", err,
			)

			continue
		}

		delivered++
	}

	return delivered
}

// invoke runs one handler, converting a panic into an error.
func (r *Registry) invoke(ctx context.Context, sub *Subscription, ev *wire.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()

	return sub.handler(ctx, ev)
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byTopic[sub.topic]

	idx := slices.Index(subs, sub)
	if idx < 0 {
		return
	}

	subs = slices.Delete(subs, idx, idx+1)
	if len(subs) == 0 {
		delete(r.byTopic, sub.topic)
	} else {
		r.byTopic[sub.topic] = subs
	}

	r.log.Debug("Removed event handler", "topic", sub.topic, "subscription_id", sub.id)
}
