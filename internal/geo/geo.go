package geo

import "math"

// Vector3 is a point or Euler rotation in world space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Vector3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RotationDelta returns the sum of absolute per-axis differences between two
// Euler rotations. There is no wraparound handling: a 359°→1° transition
// counts as a large delta.
func RotationDelta(a, b Vector3) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y) + math.Abs(a.Z-b.Z)
}
