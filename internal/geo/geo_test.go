package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    Vector3
		b    Vector3
		want float64
	}{
		{
			name: "Zero distance - identical points",
			a:    Vector3{X: 1, Y: 2, Z: 3},
			b:    Vector3{X: 1, Y: 2, Z: 3},
			want: 0,
		},
		{
			name: "Unit distance along one axis",
			a:    Vector3{},
			b:    Vector3{X: 1},
			want: 1,
		},
		{
			name: "3-4-5 triangle in XZ plane",
			a:    Vector3{X: 3, Z: 4},
			b:    Vector3{},
			want: 5,
		},
		{
			name: "Negative coordinates",
			a:    Vector3{X: -1, Y: -1, Z: -1},
			b:    Vector3{X: 1, Y: 1, Z: 1},
			want: 2 * math.Sqrt(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationDelta(t *testing.T) {
	tests := []struct {
		name string
		a    Vector3
		b    Vector3
		want float64
	}{
		{
			name: "Zero delta - identical rotations",
			a:    Vector3{X: 0.5, Y: 0.5, Z: 0.5},
			b:    Vector3{X: 0.5, Y: 0.5, Z: 0.5},
			want: 0,
		},
		{
			name: "Single axis",
			a:    Vector3{Y: 0.3},
			b:    Vector3{},
			want: 0.3,
		},
		{
			name: "Axes sum, not Euclidean",
			a:    Vector3{X: 0.1, Y: 0.2, Z: 0.3},
			b:    Vector3{},
			want: 0.6,
		},
		{
			name: "No wraparound near full turn",
			a:    Vector3{Y: 2*math.Pi - 0.01},
			b:    Vector3{Y: 0.01},
			want: 2*math.Pi - 0.02,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RotationDelta(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RotationDelta() got = %v, want %v", got, tt.want)
			}
		})
	}
}
