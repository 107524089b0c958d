package player

import (
	"encoding/json"

	"github.com/benallfree/vibescale-sub000/internal/geo"
)

// DefaultUsername is the placeholder assigned at spawn until the client sets one.
const DefaultUsername = "anonymous"

// State is the canonical record for one connected player.
//
// IsLocal is never part of canonical state: it is a per-recipient projection
// computed at send time, true only in the copy delivered to the owning
// connection.
type State struct {
	ID          string                     `json:"id"`
	Position    geo.Vector3                `json:"position"`
	Rotation    geo.Vector3                `json:"rotation"`
	Color       string                     `json:"color"`
	Username    string                     `json:"username"`
	IsConnected bool                       `json:"isConnected"`
	IsLocal     bool                       `json:"isLocal"`
	Extra       map[string]json.RawMessage `json:"extra,omitempty"`
}

// Clone returns a copy of the state with its own Extra map.
func (s State) Clone() State {
	out := s
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// StateUpdate is a partial, client-authored state change. Only fields the
// client explicitly provided are set; everything else stays nil.
type StateUpdate struct {
	Position *geo.Vector3               `json:"position,omitempty"`
	Rotation *geo.Vector3               `json:"rotation,omitempty"`
	Username *string                    `json:"username,omitempty"`
	Extra    map[string]json.RawMessage `json:"extra,omitempty"`
}

// Merge applies an update onto prev and returns the candidate state.
// The mergeable set is exactly: position, rotation, username, extra keys.
// ID, color and connection status are server-authored and never merged,
// so extra client-supplied fields cannot reach the canonical record.
func Merge(prev State, u StateUpdate) State {
	next := prev.Clone()
	if u.Position != nil {
		next.Position = *u.Position
	}
	if u.Rotation != nil {
		next.Rotation = *u.Rotation
	}
	if u.Username != nil {
		next.Username = *u.Username
	}
	if len(u.Extra) > 0 {
		if next.Extra == nil {
			next.Extra = make(map[string]json.RawMessage, len(u.Extra))
		}
		for k, v := range u.Extra {
			next.Extra[k] = v
		}
	}
	return next
}
