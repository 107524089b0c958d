// Package proto defines the JSON wire messages exchanged over the room
// websocket. One message per text frame, discriminated on the "type" field.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/benallfree/vibescale-sub000/internal/player"
)

// Message type tags.
const (
	TypePlayer = "player"
	TypeLeave  = "leave"
	TypeError  = "error"
)

// Envelope is the minimal shape every frame must have. Unknown extra fields
// on any known type are ignored, not rejected.
type Envelope struct {
	Type string `json:"type" validate:"required"`
}

// PlayerMessage carries a full player record, flattened alongside the type
// tag. Server to client only; isLocal is recipient-relative and filled in
// at send time.
type PlayerMessage struct {
	Type string `json:"type" validate:"required"`
	player.State
}

// PlayerUpdateMessage is the client-to-server counterpart: a partial state
// change under the same "player" type tag.
type PlayerUpdateMessage struct {
	Type string `json:"type"`
	player.StateUpdate
}

// LeaveMessage announces that a player's connection closed.
type LeaveMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ErrorMessage reports a protocol-level problem to the one connection that
// caused it.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UnknownTypeError is returned by DecodeClient for a well-formed frame whose
// type tag is not recognized. It is a handled, reported condition, never a
// reason to drop the connection.
type UnknownTypeError struct {
	TypeTag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.TypeTag)
}

// EncodePlayer serializes a player record for a specific recipient. The
// isLocal flag is computed here, relative to the recipient, and never stored
// back into canonical state.
func EncodePlayer(st player.State, recipientID string) ([]byte, error) {
	out := st.Clone()
	out.IsLocal = recipientID == st.ID
	return json.Marshal(PlayerMessage{Type: TypePlayer, State: out})
}

// EncodeLeave serializes a leave notification.
func EncodeLeave(playerID string) ([]byte, error) {
	return json.Marshal(LeaveMessage{Type: TypeLeave, ID: playerID})
}

// EncodeError serializes an error reply.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: TypeError, Message: message})
}

// DecodeClient parses one inbound client frame. Malformed JSON and unknown
// type tags come back as errors for the caller to convert into an error
// reply; they must not tear down the room.
func DecodeClient(data []byte) (*PlayerUpdateMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case TypePlayer:
		var msg PlayerUpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed player update: %w", err)
		}
		return &msg, nil
	default:
		return nil, &UnknownTypeError{TypeTag: env.Type}
	}
}

// DecodeServer parses one server-to-client frame into its concrete message
// type. Used by the client session.
func DecodeServer(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case TypePlayer:
		var msg PlayerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed player message: %w", err)
		}
		return &msg, nil
	case TypeLeave:
		var msg LeaveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed leave message: %w", err)
		}
		return &msg, nil
	case TypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed error message: %w", err)
		}
		return &msg, nil
	default:
		return nil, &UnknownTypeError{TypeTag: env.Type}
	}
}
