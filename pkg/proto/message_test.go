package proto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/benallfree/vibescale-sub000/internal/geo"
	"github.com/benallfree/vibescale-sub000/internal/player"
)

func TestEncodePlayerIsLocalProjection(t *testing.T) {
	st := player.State{ID: "abc", Position: geo.Vector3{X: 1}, Color: "hsl(10, 80%, 50%)"}

	tests := []struct {
		name        string
		recipientID string
		wantLocal   bool
	}{
		{"Owning recipient", "abc", true},
		{"Other recipient", "xyz", false},
		{"Empty recipient", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePlayer(st, tt.recipientID)
			if err != nil {
				t.Fatalf("EncodePlayer() error: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("output not JSON: %v", err)
			}
			if got["type"] != TypePlayer {
				t.Errorf("type = %v, want %q", got["type"], TypePlayer)
			}
			if got["isLocal"] != tt.wantLocal {
				t.Errorf("isLocal = %v, want %v", got["isLocal"], tt.wantLocal)
			}
			if got["id"] != "abc" {
				t.Errorf("id = %v, want abc (flattened shape)", got["id"])
			}
		})
	}

	// The projection must not leak into the canonical record.
	if st.IsLocal {
		t.Errorf("EncodePlayer mutated canonical state")
	}
}

func TestDecodeClient(t *testing.T) {
	t.Run("Partial update", func(t *testing.T) {
		msg, err := DecodeClient([]byte(`{"type":"player","position":{"x":1,"y":0,"z":2}}`))
		if err != nil {
			t.Fatalf("DecodeClient() error: %v", err)
		}
		if msg.Position == nil || msg.Position.X != 1 || msg.Position.Z != 2 {
			t.Errorf("position = %+v, want {1 0 2}", msg.Position)
		}
		if msg.Rotation != nil || msg.Username != nil {
			t.Errorf("unspecified fields should stay nil: %+v", msg)
		}
	})

	t.Run("Unknown fields ignored", func(t *testing.T) {
		if _, err := DecodeClient([]byte(`{"type":"player","wat":true}`)); err != nil {
			t.Errorf("DecodeClient() rejected unknown field: %v", err)
		}
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := DecodeClient([]byte(`{"type":"bogus"}`))
		var ute *UnknownTypeError
		if !errors.As(err, &ute) {
			t.Fatalf("DecodeClient() error = %v, want UnknownTypeError", err)
		}
		if ute.TypeTag != "bogus" {
			t.Errorf("TypeTag = %q, want %q", ute.TypeTag, "bogus")
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		if _, err := DecodeClient([]byte(`{nope`)); err == nil {
			t.Errorf("DecodeClient() accepted malformed JSON")
		}
	})
}

func TestDecodeServer(t *testing.T) {
	t.Run("Player", func(t *testing.T) {
		v, err := DecodeServer([]byte(`{"type":"player","id":"p1","isLocal":true,"color":"hsl(1, 80%, 50%)"}`))
		if err != nil {
			t.Fatalf("DecodeServer() error: %v", err)
		}
		msg, ok := v.(*PlayerMessage)
		if !ok || msg.ID != "p1" || !msg.IsLocal {
			t.Errorf("DecodeServer() = %#v, want PlayerMessage p1 isLocal", v)
		}
	})

	t.Run("Leave", func(t *testing.T) {
		v, err := DecodeServer([]byte(`{"type":"leave","id":"p1"}`))
		if err != nil {
			t.Fatalf("DecodeServer() error: %v", err)
		}
		if msg, ok := v.(*LeaveMessage); !ok || msg.ID != "p1" {
			t.Errorf("DecodeServer() = %#v, want LeaveMessage p1", v)
		}
	})

	t.Run("Error", func(t *testing.T) {
		v, err := DecodeServer([]byte(`{"type":"error","message":"nope"}`))
		if err != nil {
			t.Fatalf("DecodeServer() error: %v", err)
		}
		if msg, ok := v.(*ErrorMessage); !ok || msg.Message != "nope" {
			t.Errorf("DecodeServer() = %#v, want ErrorMessage", v)
		}
	})
}
