package gamelink

import "encoding/json"

// State is the connection lifecycle of the game link.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Frame is the single wire unit exchanged with the game server: a channel
// for routing, an event name, and an opaque payload decoded by the
// handler registered for that channel and event.
type Frame struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// helloPayload introduces this client after the handshake so the server
// can tell reconnects of the same process apart from new clients.
type helloPayload struct {
	ClientID string `json:"client_id"`
}

// StateCallback observes link state transitions.
type StateCallback func(state State)
