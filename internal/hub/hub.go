// Package hub maps room names to their single room actor. Rooms are created
// lazily on first connection and reaped once their last connection leaves.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benallfree/vibescale-sub000/internal/repository"
	"github.com/benallfree/vibescale-sub000/internal/room"
)

var meter = otel.Meter("hub")

// Hub owns the name → room actor mapping. It performs no message handling
// itself; each room runs independently and shares no mutable state with its
// siblings.
type Hub struct {
	cfg     room.Config
	players repository.PlayerRepository
	journal repository.EventJournal

	mu    sync.Mutex
	rooms map[string]*room.Room
}

// NewHub creates a hub. The repositories may be nil; rooms then run purely
// in-memory.
func NewHub(cfg room.Config, players repository.PlayerRepository, journal repository.EventJournal) *Hub {
	h := &Hub{
		cfg:     cfg,
		players: players,
		journal: journal,
		rooms:   make(map[string]*room.Room),
	}

	_, _ = meter.Int64ObservableGauge("hub.rooms",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(h.RoomCount()))
			return nil
		}))

	return h
}

// Resolve returns the singleton actor for a room name, creating and starting
// it on first use.
func (h *Hub) Resolve(name string) *room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[name]; ok {
		return r
	}
	r := room.New(name, h.cfg, h.players, h.journal)
	h.rooms[name] = r
	r.Start(h.reap)
	slog.Info("room created", "room.name", name)
	return r
}

// Lookup returns an existing room without creating one. Used by the health
// endpoint, which must not spawn rooms as a side effect.
func (h *Hub) Lookup(name string) (*room.Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	return r, ok
}

// ConnCount reports the live connection count for a room, zero when the
// room does not exist.
func (h *Hub) ConnCount(name string) int {
	r, ok := h.Lookup(name)
	if !ok {
		return 0
	}
	return r.ConnCount()
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Shutdown stops every room.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, r := range h.rooms {
		r.Stop()
		delete(h.rooms, name)
	}
}

// reap runs from inside a room goroutine when its last connection leaves.
// The count is re-checked under the hub lock because a join can race the
// empty notification.
func (h *Hub) reap(r *room.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.rooms[r.Name]; !ok || cur != r || r.ConnCount() > 0 {
		return
	}
	delete(h.rooms, r.Name)
	r.Stop()
	slog.Info("room reaped", "room.name", r.Name)
}
