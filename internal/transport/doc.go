// Package transport provides the link to the editor.
//
// A Link is one established bidirectional message channel. The stock
// implementation is a WebSocket carrying one JSON envelope per text frame.
// Links are produced by a Dialer so tests can substitute in-memory links.
package transport
