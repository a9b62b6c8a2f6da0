// Package dispatch routes decoded editor frames.
//
// A Dispatcher receives every inbound frame from the read loop. Replies are
// handed to the correlation table; events are published to the Registry,
// which fans them out to the handlers subscribed to the event topic and then
// to the handlers subscribed to TopicAll. A handler that fails or panics is
// logged and never affects other handlers or the read loop.
package dispatch
