package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Geometry of the synthetic right hand used by the fixtures below.
var (
	fingerBases   = [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	fingerMCPs    = [4]Point3D{{X: 0.55, Y: 0.68}, {X: 0.50, Y: 0.66}, {X: 0.45, Y: 0.68}, {X: 0.40, Y: 0.70}}
	fingerLengths = [4][3]float64{{0.13, 0.09, 0.08}, {0.14, 0.11, 0.09}, {0.13, 0.10, 0.08}, {0.10, 0.08, 0.07}}
	jointBend     = [3]float64{1.45, 1.6, 1.1} // radians per joint at full flex
	thumbLengths  = [3]float64{0.08, 0.07, 0.06}
)

// SyntheticHand builds a right hand facing the camera. flex holds one value
// per finger (thumb, index, middle, ring, pinky): 0 is fully extended,
// 1 is curled into the palm.
func SyntheticHand(flex [5]float64) HandLandmarks {
	points := make([]Point3D, NumLandmarks)
	points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75}

	// The thumb opens up and to the right and sweeps across the palm as it flexes.
	phi := 40 * math.Pi / 180
	pos := points[ThumbCMC]
	for j, idx := range []int{ThumbMCP, ThumbIP, ThumbTip} {
		l := thumbLengths[j]
		dz := 0.0
		if j > 0 {
			phi += flex[0] * 75 * math.Pi / 180
			dz = 0.3 * flex[0] * l
		}
		pos = Point3D{X: pos.X + math.Cos(phi)*l, Y: pos.Y - math.Sin(phi)*l, Z: pos.Z - dz}
		points[idx] = pos
	}

	// Fingers point up and curl toward the camera.
	for f, base := range fingerBases {
		points[base] = fingerMCPs[f]
		pos := points[base]
		theta := 0.0
		for j, l := range fingerLengths[f] {
			theta += flex[f+1] * jointBend[j]
			pos = Point3D{X: pos.X, Y: pos.Y - math.Cos(theta)*l, Z: pos.Z - math.Sin(theta)*l}
			points[base+1+j] = pos
		}
	}

	return HandLandmarks{Points: points, Handedness: "Right", Score: 0.95}
}

// FlexedLandmarks returns a hand with every finger flexed by t in [0,1].
func FlexedLandmarks(t float64) HandLandmarks {
	return SyntheticHand([5]float64{t, t, t, t, t})
}

// FistLandmarks returns a closed fist.
func FistLandmarks() HandLandmarks {
	return FlexedLandmarks(1)
}

// PointingLandmarks returns an extended index finger with the thumb out
// and the remaining fingers curled.
func PointingLandmarks() HandLandmarks {
	return SyntheticHand([5]float64{0, 0, 0.9, 0.9, 0.9})
}

// VictoryLandmarks returns index and middle extended in a V.
func VictoryLandmarks() HandLandmarks {
	return SyntheticHand([5]float64{1, 0, 0, 1, 1})
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points: []Point3D{
			Wrist:    {X: 0.5, Y: 0.8, Z: 0.0},
			ThumbCMC: {X: 0.55, Y: 0.75, Z: 0.02},
			ThumbMCP: {X: 0.62, Y: 0.70, Z: 0.03},
			ThumbIP:  {X: 0.68, Y: 0.65, Z: 0.03},
			ThumbTip: {X: 0.73, Y: 0.60, Z: 0.03},

			IndexMCP: {X: 0.55, Y: 0.68},
			IndexPIP: {X: 0.57, Y: 0.55},
			IndexDIP: {X: 0.58, Y: 0.45},
			IndexTip: {X: 0.58, Y: 0.35},

			MiddleMCP: {X: 0.50, Y: 0.66},
			MiddlePIP: {X: 0.50, Y: 0.52},
			MiddleDIP: {X: 0.50, Y: 0.40},
			MiddleTip: {X: 0.50, Y: 0.28},

			RingMCP: {X: 0.45, Y: 0.68},
			RingPIP: {X: 0.43, Y: 0.55},
			RingDIP: {X: 0.42, Y: 0.45},
			RingTip: {X: 0.42, Y: 0.35},

			PinkyMCP: {X: 0.40, Y: 0.70},
			PinkyPIP: {X: 0.37, Y: 0.60},
			PinkyDIP: {X: 0.35, Y: 0.50},
			PinkyTip: {X: 0.34, Y: 0.42},
		},
	}
}

// PinchLandmarks returns all five fingertips gathered to one point.
func PinchLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points: []Point3D{
			Wrist:    {X: 0.5, Y: 0.8},
			ThumbCMC: {X: 0.55, Y: 0.75},
			ThumbMCP: {X: 0.60, Y: 0.68, Z: -0.01},
			ThumbIP:  {X: 0.57, Y: 0.60, Z: -0.03},
			ThumbTip: {X: 0.52, Y: 0.54, Z: -0.05},

			IndexMCP: {X: 0.55, Y: 0.68},
			IndexPIP: {X: 0.55, Y: 0.58, Z: -0.03},
			IndexDIP: {X: 0.53, Y: 0.55, Z: -0.05},
			IndexTip: {X: 0.51, Y: 0.53, Z: -0.06},

			MiddleMCP: {X: 0.50, Y: 0.66},
			MiddlePIP: {X: 0.50, Y: 0.56, Z: -0.03},
			MiddleDIP: {X: 0.50, Y: 0.53, Z: -0.05},
			MiddleTip: {X: 0.50, Y: 0.51, Z: -0.06},

			RingMCP: {X: 0.45, Y: 0.68},
			RingPIP: {X: 0.46, Y: 0.58, Z: -0.03},
			RingDIP: {X: 0.48, Y: 0.55, Z: -0.05},
			RingTip: {X: 0.49, Y: 0.53, Z: -0.06},

			PinkyMCP: {X: 0.40, Y: 0.70},
			PinkyPIP: {X: 0.42, Y: 0.61, Z: -0.03},
			PinkyDIP: {X: 0.45, Y: 0.57, Z: -0.05},
			PinkyTip: {X: 0.47, Y: 0.55, Z: -0.06},
		},
	}
}

// ClickLandmarks returns an open hand with the index tip touching the thumb tip.
func ClickLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70}
	h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.64, Z: -0.01}
	h.Points[ThumbTip] = Point3D{X: 0.66, Y: 0.58, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.60, Y: 0.58, Z: -0.02}
	h.Points[IndexDIP] = Point3D{X: 0.64, Y: 0.56, Z: -0.03}
	h.Points[IndexTip] = Point3D{X: 0.66, Y: 0.575, Z: -0.02}
	return h
}

// Translate returns a copy of h shifted by (dx, dy) in image space.
func Translate(h HandLandmarks, dx, dy float64) HandLandmarks {
	out := h
	out.Points = make([]Point3D, len(h.Points))
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return out
}

// WithGesture returns a copy of h carrying a discrete observation.
func WithGesture(h HandLandmarks, label string, confidence float64) HandLandmarks {
	h.Gesture = &Observation{Label: label, Confidence: confidence}
	return h
}
