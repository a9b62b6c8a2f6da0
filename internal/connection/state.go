package connection

import "time"

// State is the lifecycle state of a Connection.
type State int

const (
	// StateDisconnected means there is no link and no attempt in progress.
	StateDisconnected State = iota
	// StateConnecting means a connection attempt is in progress.
	StateConnecting
	// StateConnected means a link is up and commands can be sent.
	StateConnected
	// StateDisconnecting means an explicit disconnect is closing the link.
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of a Connection.
type Status struct {
	State State `json:"state"`

	// URL is the editor endpoint, empty when a custom dialer is used.
	URL string `json:"url,omitempty"`

	// LinkID identifies the current link. Empty when not connected.
	LinkID string `json:"link_id,omitempty"`

	// ConnectedAt is when the current link was established.
	ConnectedAt time.Time `json:"connected_at,omitzero"`

	// LastActivity is when the last inbound frame or pong was observed on any link.
	LastActivity time.Time `json:"last_activity,omitzero"`

	// Pending is the number of commands awaiting a reply.
	Pending int `json:"pending"`

	// Reconnecting reports whether the background reconnect loop is running.
	Reconnecting bool `json:"reconnecting"`
}
