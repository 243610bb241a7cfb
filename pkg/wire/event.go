package wire

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates the closed set of game-server events the bridge
// understands. Anything else is rejected by DecodeEvent.
type EventKind string

const (
	EventJoin        EventKind = "join"
	EventQuit        EventKind = "quit"
	EventDeath       EventKind = "death"
	EventAdvancement EventKind = "advancement"
	EventChat        EventKind = "chat"
	EventPlayers     EventKind = "players"
	EventPerformance EventKind = "performance"
)

// PlayerEntry is one roster entry in a players event.
type PlayerEntry struct {
	Name string `json:"name"`
}

// PlayersStatus is the payload of a players event.
type PlayersStatus struct {
	Current int           `json:"current"`
	Maximum int           `json:"maximum"`
	Players []PlayerEntry `json:"players"`
}

// Performance is the payload of a performance event.
type Performance struct {
	TPS  float64 `json:"tps"`
	MSPT float64 `json:"mspt"`
}

// Event is a decoded game-server event. Exactly one of the payload
// pointers is set, selected by Kind.
type Event struct {
	Kind        EventKind
	Envelope    *Envelope
	Players     *PlayersStatus
	Performance *Performance
}

// DecodeEvent decodes a raw transport payload into a tagged event.
// Unknown event names are an explicit error so that a skewed server
// vocabulary is logged instead of silently dropped.
func DecodeEvent(name string, data []byte) (*Event, error) {
	kind := EventKind(name)
	switch kind {
	case EventJoin, EventQuit, EventDeath, EventAdvancement, EventChat:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode %s envelope: %w", name, err)
		}
		return &Event{Kind: kind, Envelope: &env}, nil
	case EventPlayers:
		var ps PlayersStatus
		if err := json.Unmarshal(data, &ps); err != nil {
			return nil, fmt.Errorf("decode players payload: %w", err)
		}
		return &Event{Kind: kind, Players: &ps}, nil
	case EventPerformance:
		var perf Performance
		if err := json.Unmarshal(data, &perf); err != nil {
			return nil, fmt.Errorf("decode performance payload: %w", err)
		}
		return &Event{Kind: kind, Performance: &perf}, nil
	default:
		return nil, fmt.Errorf("unrecognized event %q", name)
	}
}
