package player

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/benallfree/vibescale-sub000/internal/geo"
)

// DefaultSpawnRadius is the radius of the disk new players spawn inside.
const DefaultSpawnRadius = 1.0

// NewSpawnState builds the server-authored record for a freshly accepted
// connection: a UUID identity, a position sampled uniformly inside the
// spawn disk on the XZ plane, zero rotation and a random readable color.
func NewSpawnState(spawnRadius float64) State {
	if spawnRadius <= 0 {
		spawnRadius = DefaultSpawnRadius
	}
	return State{
		ID:          uuid.New().String(),
		Position:    randomSpawnPosition(spawnRadius),
		Rotation:    geo.Vector3{},
		Color:       randomColor(),
		Username:    DefaultUsername,
		IsConnected: true,
	}
}

// randomSpawnPosition samples uniformly inside a disk of the given radius.
// The sqrt keeps density uniform over area rather than clustering at the
// center.
func randomSpawnPosition(radius float64) geo.Vector3 {
	r := radius * math.Sqrt(rand.Float64())
	theta := 2 * math.Pi * rand.Float64()
	return geo.Vector3{
		X: r * math.Cos(theta),
		Y: 0,
		Z: r * math.Sin(theta),
	}
}

// randomColor picks an HSL color with full hue range but constrained
// saturation and lightness, so every player color stays readable against
// the scene.
func randomColor() string {
	hue := rand.N(360)
	saturation := 70 + rand.N(30)
	lightness := 40 + rand.N(20)
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness)
}
