package client

import (
	"sync"

	"github.com/benallfree/vibescale-sub000/internal/player"
)

// EventType names the session events a consumer can subscribe to.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventDisconnected  EventType = "disconnected"
	EventPlayerJoined  EventType = "playerJoined"
	EventPlayerUpdated EventType = "playerUpdated"
	EventPlayerLeft    EventType = "playerLeft"
	EventError         EventType = "error"
	// Raw frame taps for diagnostics.
	EventRx EventType = "rx"
	EventTx EventType = "tx"
)

// Event is delivered to subscribed handlers. Which fields are set depends on
// the type: Player for the player* events, Err for error, Raw for rx/tx.
type Event struct {
	Type   EventType
	Player *player.State
	Err    error
	Raw    []byte
}

// Handler receives session events. Handlers run on the session's read
// goroutine and must not block.
type Handler func(Event)

type emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[EventType]map[int]Handler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType]map[int]Handler)}
}

// on subscribes a handler and returns its unsubscribe function.
func (e *emitter) on(t EventType, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers[t] == nil {
		e.handlers[t] = make(map[int]Handler)
	}
	id := e.nextID
	e.nextID++
	e.handlers[t][id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[t], id)
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	hs := make([]Handler, 0, len(e.handlers[ev.Type]))
	for _, h := range e.handlers[ev.Type] {
		hs = append(hs, h)
	}
	e.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}
