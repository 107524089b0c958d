// Package client implements the consumer-side room session: it connects to a
// room, mirrors the local and remote player states the server broadcasts,
// and re-exposes protocol activity as events.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/benallfree/vibescale-sub000/internal/player"
	"github.com/benallfree/vibescale-sub000/pkg/proto"
)

// ErrNotConnected is returned by SetLocalState while the session is down.
var ErrNotConnected = errors.New("client: not connected")

// Options tunes a session.
type Options struct {
	// Reconnect enables automatic reconnection with exponential backoff
	// after an unexpected disconnect. Off by default: every reconnect is a
	// brand new identity, so the consumer must be prepared for that.
	Reconnect bool
	// Backoff overrides the default reconnect policy.
	Backoff *backoff.ExponentialBackOff
}

// Session is one client's connection to one room. All cached remote players
// are only valid for the lifetime of one connection: the cache is cleared on
// disconnect because a reconnect yields new identities for everyone.
type Session struct {
	url    string
	opts   Options
	events *emitter

	mu      sync.Mutex
	conn    *websocket.Conn
	localID string
	players map[string]player.State
	closed  bool
}

// NewSession prepares a session for the given room on the given server base
// URL (ws:// or wss://, no trailing slash). Call Connect to go live.
func NewSession(serverURL, roomName string, opts Options) *Session {
	return &Session{
		url:     fmt.Sprintf("%s/%s/websocket", serverURL, roomName),
		opts:    opts,
		events:  newEmitter(),
		players: make(map[string]player.State),
	}
}

// On subscribes to a session event and returns an unsubscribe function.
func (s *Session) On(t EventType, h Handler) func() {
	return s.events.on(t, h)
}

// Connect dials the room and starts the read loop.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return errors.New("client: already connected")
	}
	s.closed = false
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial room: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.events.emit(Event{Type: EventConnected})
	go s.readLoop(conn)
	return nil
}

// GetLocalPlayer returns this connection's own state once the server has
// assigned it.
func (s *Session) GetLocalPlayer() (player.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localID == "" {
		return player.State{}, false
	}
	st, ok := s.players[s.localID]
	return st, ok
}

// GetPlayer returns any cached player by id.
func (s *Session) GetPlayer(id string) (player.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.players[id]
	return st, ok
}

// Players returns a snapshot of every cached player.
func (s *Session) Players() []player.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]player.State, 0, len(s.players))
	for _, st := range s.players {
		out = append(out, st)
	}
	return out
}

// SetLocalState sends a partial update and applies the same merge locally
// for optimistic UI. The server may still judge it insignificant and not
// rebroadcast it.
func (s *Session) SetLocalState(update player.StateUpdate) error {
	msg := proto.PlayerUpdateMessage{Type: proto.TypePlayer, StateUpdate: update}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.localID != "" {
		if st, ok := s.players[s.localID]; ok {
			s.players[s.localID] = player.Merge(st, update)
		}
	}
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send update: %w", err)
	}
	s.events.emit(Event{Type: EventTx, Raw: data})
	return nil
}

// Disconnect closes the connection and disables reconnection.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(conn)
			return
		}
		s.events.emit(Event{Type: EventRx, Raw: data})
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	msg, err := proto.DecodeServer(data)
	if err != nil {
		s.events.emit(Event{Type: EventError, Err: err})
		return
	}

	switch m := msg.(type) {
	case *proto.PlayerMessage:
		s.handlePlayer(m)
	case *proto.LeaveMessage:
		s.mu.Lock()
		st, known := s.players[m.ID]
		delete(s.players, m.ID)
		s.mu.Unlock()
		if known {
			s.events.emit(Event{Type: EventPlayerLeft, Player: &st})
		}
	case *proto.ErrorMessage:
		s.events.emit(Event{Type: EventError, Err: errors.New(m.Message)})
	}
}

func (s *Session) handlePlayer(m *proto.PlayerMessage) {
	s.mu.Lock()
	if m.IsLocal {
		// The first isLocal state is this connection's identity for the
		// rest of the session.
		s.localID = m.ID
	}
	_, known := s.players[m.ID]
	s.players[m.ID] = m.State
	s.mu.Unlock()

	st := m.State
	if known {
		s.events.emit(Event{Type: EventPlayerUpdated, Player: &st})
	} else {
		s.events.emit(Event{Type: EventPlayerJoined, Player: &st})
	}
}

// handleDisconnect clears all per-connection state. Remote players are only
// meaningful within one connection, so the cache always empties here.
func (s *Session) handleDisconnect(conn *websocket.Conn) {
	conn.Close()

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.localID = ""
	s.players = make(map[string]player.State)
	intentional := s.closed
	s.mu.Unlock()

	s.events.emit(Event{Type: EventDisconnected})

	if !intentional && s.opts.Reconnect {
		go s.reconnect()
	}
}

func (s *Session) reconnect() {
	b := s.opts.Backoff
	if b == nil {
		b = backoff.NewExponentialBackOff()
		b.InitialInterval = 250 * time.Millisecond
		b.MaxElapsedTime = 0 // keep trying until Disconnect
	}

	op := func() error {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return backoff.Permanent(errors.New("client: disconnected"))
		}
		s.mu.Unlock()
		return s.Connect(context.Background())
	}

	if err := backoff.Retry(op, b); err != nil {
		s.events.emit(Event{Type: EventError, Err: fmt.Errorf("reconnect abandoned: %w", err)})
	}
}
