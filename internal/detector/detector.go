// Package detector decides whether a player state change is big enough to
// justify a broadcast. Each room owns its own Detector instance so snapshot
// state never leaks between rooms and can be dropped with the room.
package detector

import (
	"sync"

	"github.com/benallfree/vibescale-sub000/internal/geo"
	"github.com/benallfree/vibescale-sub000/internal/player"
)

const (
	// DefaultPositionThreshold is in world units.
	DefaultPositionThreshold = 0.1
	// DefaultRotationThreshold is in radians, summed over axes.
	DefaultRotationThreshold = 0.1
)

// Predicate lets the embedding application force significance for state the
// built-in thresholds do not cover (for example an extra-field change).
type Predicate func(last, candidate player.State) bool

// Config carries the per-room thresholds.
type Config struct {
	PositionThreshold float64
	RotationThreshold float64
	Predicate         Predicate
}

// DefaultConfig returns the standard thresholds with no custom predicate.
func DefaultConfig() Config {
	return Config{
		PositionThreshold: DefaultPositionThreshold,
		RotationThreshold: DefaultRotationThreshold,
	}
}

// Detector keeps, per player, the last state that was actually broadcast.
// Sub-threshold drift is judged against that snapshot, not against the last
// received state, so small movements accumulate and eventually fire.
type Detector struct {
	cfg Config

	mu        sync.Mutex
	snapshots map[string]player.State
}

// New creates a detector. Zero or negative thresholds fall back to defaults.
func New(cfg Config) *Detector {
	if cfg.PositionThreshold <= 0 {
		cfg.PositionThreshold = DefaultPositionThreshold
	}
	if cfg.RotationThreshold <= 0 {
		cfg.RotationThreshold = DefaultRotationThreshold
	}
	return &Detector{
		cfg:       cfg,
		snapshots: make(map[string]player.State),
	}
}

// IsSignificant reports whether candidate differs enough from the last
// broadcast snapshot for that player. The first observation of a player is
// always significant. On a true result the snapshot is replaced by
// candidate; on false it is left untouched.
func (d *Detector) IsSignificant(candidate player.State) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.snapshots[candidate.ID]
	if !ok {
		d.snapshots[candidate.ID] = candidate.Clone()
		return true
	}

	significant := geo.Distance(candidate.Position, last.Position) > d.cfg.PositionThreshold ||
		geo.RotationDelta(candidate.Rotation, last.Rotation) > d.cfg.RotationThreshold
	if !significant && d.cfg.Predicate != nil {
		significant = d.cfg.Predicate(last, candidate)
	}

	if significant {
		d.snapshots[candidate.ID] = candidate.Clone()
	}
	return significant
}

// Forget evicts a player's snapshot. Must be called on disconnect or the
// map grows with room churn.
func (d *Detector) Forget(playerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.snapshots, playerID)
}

// Tracked returns the number of players with a snapshot.
func (d *Detector) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snapshots)
}
