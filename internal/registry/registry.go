// Package registry holds the connection-to-state mapping for exactly one
// room. Room membership is defined by presence here and nowhere else.
package registry

import (
	"log/slog"
	"sync"

	"github.com/benallfree/vibescale-sub000/internal/player"
)

// Entry pairs a connection handle with its current state.
type Entry struct {
	Client *player.Client
	State  player.State
}

// Registry maps open connections to their latest player state. The room
// actor serializes mutation, but the health endpoint reads Len from request
// goroutines, so access is guarded anyway.
type Registry struct {
	mu      sync.RWMutex
	entries map[*player.Client]player.State
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[*player.Client]player.State)}
}

// Register stores the initial state for a connection. A duplicate
// registration is a no-op and only logged.
func (r *Registry) Register(c *player.Client, initial player.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c]; ok {
		slog.Warn("connection already registered", "room.name", c.RoomName, "player.id", c.PlayerID)
		return
	}
	r.entries[c] = initial
}

// Get returns the current state for a connection.
func (r *Registry) Get(c *player.Client) (player.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.entries[c]
	return st, ok
}

// Update replaces the stored state. Significance is the caller's concern;
// the registry always keeps the most recent state so small drift is not
// lost.
func (r *Registry) Update(c *player.Client, next player.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c]; !ok {
		return
	}
	r.entries[c] = next
}

// Remove deletes a connection and returns its last known state, used to
// build the leave broadcast. The second return is false if the connection
// was not registered (already removed).
func (r *Registry) Remove(c *player.Client) (player.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.entries[c]
	if ok {
		delete(r.entries, c)
	}
	return st, ok
}

// All returns a snapshot of every entry at call time. Iterating the
// snapshot is safe while entries are concurrently added or removed; joins
// during a broadcast simply miss that broadcast.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for c, st := range r.entries {
		out = append(out, Entry{Client: c, State: st})
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
