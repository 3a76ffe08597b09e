// Package detector provides hand detection interfaces and landmark types.
package detector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is one landmark. X and Y are normalized to [0,1] image space,
// Z is relative depth (more negative is closer to the camera).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point to a gonum vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Finite reports whether every coordinate is a finite number.
func (p Point3D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Observation is the optional discrete gesture label produced alongside
// the landmarks, e.g. "Closed_Fist" with its confidence in [0,1].
type Observation struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// HandLandmarks is one detected hand. A well-formed hand carries exactly
// NumLandmarks points; anything else is treated as "no signal" downstream.
type HandLandmarks struct {
	Points     []Point3D    `json:"points"`
	Handedness string       `json:"handedness"` // "Left" or "Right"
	Score      float64      `json:"score"`
	Gesture    *Observation `json:"gesture,omitempty"`
}

// Valid reports whether the hand has exactly NumLandmarks finite points.
func (h *HandLandmarks) Valid() bool {
	if h == nil || len(h.Points) != NumLandmarks {
		return false
	}
	for _, p := range h.Points {
		if !p.Finite() {
			return false
		}
	}
	return true
}

// Normalize returns a copy of the hand with the wrist at the origin and
// the wrist→middle-MCP distance scaled to 1.0. Returns nil for invalid hands.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if !h.Valid() {
		return nil
	}

	normalized := &HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: h.Handedness,
		Score:      h.Score,
		Gesture:    h.Gesture,
	}

	wrist := h.Points[Wrist].Vec()
	for i, p := range h.Points {
		d := r3.Sub(p.Vec(), wrist)
		normalized.Points[i] = Point3D{X: d.X, Y: d.Y, Z: d.Z}
	}

	scale := r3.Norm(normalized.Points[MiddleMCP].Vec())
	if scale < 1e-10 {
		return normalized
	}

	for i := range normalized.Points {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
