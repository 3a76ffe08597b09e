// Package manipulate tracks continuous two-point gestures (pinch, scale,
// move) and applies them to the transform of a manipulable object.
package manipulate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// World-space bounds the transform position is kept inside.
const (
	BoundXY = 8.0
	MinZ    = 1.0
	MaxZ    = 8.0

	// DefaultZ is the resting depth of a fresh transform.
	DefaultZ = 4.0

	// worldSpan maps a normalized image axis [0,1] to world units.
	worldSpan = 16.0
)

// Transform is the position, scale and rotation flag of the manipulated
// object. It is owned by the Tracker and read by the renderer.
type Transform struct {
	Position        r3.Vec  `json:"position"`
	Scale           float64 `json:"scale"`
	RotationEnabled bool    `json:"rotation_enabled"`
}

// DefaultTransform returns a centered, unscaled, rotating transform.
func DefaultTransform() Transform {
	return Transform{
		Position:        r3.Vec{Z: DefaultZ},
		Scale:           1,
		RotationEnabled: true,
	}
}

// ToWorld maps a point in normalized image space into world space. X is
// mirrored so the object follows the hand on a selfie-view camera. The
// depth is supplied by the caller since landmark z is only relative.
func ToWorld(p r3.Vec, z float64) r3.Vec {
	return r3.Vec{
		X: (0.5 - p.X) * worldSpan,
		Y: (0.5 - p.Y) * worldSpan,
		Z: z,
	}
}

// ClampPosition keeps p inside the on-screen cube.
func ClampPosition(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: clamp(p.X, -BoundXY, BoundXY),
		Y: clamp(p.Y, -BoundXY, BoundXY),
		Z: clamp(p.Z, MinZ, MaxZ),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v r3.Vec) bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
