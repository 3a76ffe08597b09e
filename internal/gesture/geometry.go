// Package gesture turns hand landmarks into semantic hand states and
// stabilized one-shot triggers.
package gesture

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
)

// eps guards every normalization against zero-length vectors.
const eps = 1e-9

// finger is a (tip, pip, mcp) landmark triplet. For the thumb the IP joint
// stands in for the PIP.
type finger struct {
	tip, pip, mcp int
}

var fingers = [5]finger{
	{detector.ThumbTip, detector.ThumbIP, detector.ThumbMCP},
	{detector.IndexTip, detector.IndexPIP, detector.IndexMCP},
	{detector.MiddleTip, detector.MiddlePIP, detector.MiddleMCP},
	{detector.RingTip, detector.RingPIP, detector.RingMCP},
	{detector.PinkyTip, detector.PinkyPIP, detector.PinkyMCP},
}

// Closure calibration. Ratios are |tip-mcp| / |pip-mcp|; reach is the
// tip to palm-center distance in units of hand size (wrist to middle MCP).
const (
	ratioOpen    = 2.5
	ratioClosed  = 0.9
	reachOpen    = 2.0
	reachClosed  = 0.3
	ratioWeight  = 0.3
	reachWeight  = 0.7
	straightCos  = 0.9
	palmSpanMin  = 0.15
	palmSpanMax  = 0.40
	pinchRadius  = 0.08
	clickRadius  = 0.05
	clickSpacing = 0.08
)

func vec(points []detector.Point3D, i int) r3.Vec {
	return points[i].Vec()
}

func valid(points []detector.Point3D) bool {
	if len(points) != detector.NumLandmarks {
		return false
	}
	for _, p := range points {
		if !p.Finite() {
			return false
		}
	}
	return true
}

// PalmCenter is the mean of the wrist and the four finger MCP joints.
// ok is false for malformed input.
func PalmCenter(points []detector.Point3D) (c r3.Vec, ok bool) {
	if !valid(points) {
		return r3.Vec{}, false
	}
	for _, i := range []int{detector.Wrist, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP} {
		c = r3.Add(c, vec(points, i))
	}
	return r3.Scale(1.0/5, c), true
}

// FistClosureDegree measures how curled the fingers are, in [0,1].
func FistClosureDegree(points []detector.Point3D) float64 {
	center, ok := PalmCenter(points)
	if !ok {
		return 0
	}
	size := r3.Norm(r3.Sub(vec(points, detector.MiddleMCP), vec(points, detector.Wrist)))
	if size < eps {
		return 0
	}

	var total float64
	for _, f := range fingers {
		tip, pip, mcp := vec(points, f.tip), vec(points, f.pip), vec(points, f.mcp)

		segment := r3.Norm(r3.Sub(pip, mcp))
		ratio := r3.Norm(r3.Sub(tip, mcp)) / max(segment, eps)
		byRatio := clamp01((ratioOpen - ratio) / (ratioOpen - ratioClosed))

		reach := r3.Norm(r3.Sub(tip, center)) / size
		byReach := clamp01((reachOpen - reach) / (reachOpen - reachClosed))

		total += ratioWeight*byRatio + reachWeight*byReach
	}
	return clamp01(total / float64(len(fingers)))
}

// PalmOpenDegree maps the mean fingertip to wrist distance onto [0,1].
func PalmOpenDegree(points []detector.Point3D) float64 {
	if !valid(points) {
		return 0
	}
	wrist := vec(points, detector.Wrist)
	var sum float64
	for _, f := range fingers {
		sum += r3.Norm(r3.Sub(vec(points, f.tip), wrist))
	}
	mean := sum / float64(len(fingers))
	return clamp01((mean - palmSpanMin) / (palmSpanMax - palmSpanMin))
}

// IsFingerStraight reports whether the tip-pip and pip-mcp segments are
// within about 26 degrees of each other.
func IsFingerStraight(tip, pip, mcp detector.Point3D) bool {
	if !tip.Finite() || !pip.Finite() || !mcp.Finite() {
		return false
	}
	u := r3.Sub(tip.Vec(), pip.Vec())
	v := r3.Sub(pip.Vec(), mcp.Vec())
	nu, nv := r3.Norm(u), r3.Norm(v)
	if nu < eps || nv < eps {
		return false
	}
	return r3.Dot(u, v)/(nu*nv) > straightCos
}

func straight(points []detector.Point3D, f finger) bool {
	return IsFingerStraight(points[f.tip], points[f.pip], points[f.mcp])
}

// IsPointing reports an extended index finger with middle, ring and pinky bent.
func IsPointing(points []detector.Point3D) bool {
	if !valid(points) {
		return false
	}
	return straight(points, fingers[1]) &&
		!straight(points, fingers[2]) &&
		!straight(points, fingers[3]) &&
		!straight(points, fingers[4])
}

// IsVictory reports index and middle extended with ring and pinky bent.
func IsVictory(points []detector.Point3D) bool {
	if !valid(points) {
		return false
	}
	return straight(points, fingers[1]) &&
		straight(points, fingers[2]) &&
		!straight(points, fingers[3]) &&
		!straight(points, fingers[4])
}

// IsFiveFingerPinch reports all five fingertips gathered within
// pinchRadius of their centroid.
func IsFiveFingerPinch(points []detector.Point3D) bool {
	if !valid(points) {
		return false
	}
	var centroid r3.Vec
	for _, f := range fingers {
		centroid = r3.Add(centroid, vec(points, f.tip))
	}
	centroid = r3.Scale(1.0/float64(len(fingers)), centroid)
	for _, f := range fingers {
		if r3.Norm(r3.Sub(vec(points, f.tip), centroid)) > pinchRadius {
			return false
		}
	}
	return true
}

// IsClick reports the index tip touching the thumb tip while the middle
// finger stays extended and clear of the pinch.
func IsClick(points []detector.Point3D) bool {
	if !valid(points) {
		return false
	}
	thumb := vec(points, detector.ThumbTip)
	if r3.Norm(r3.Sub(vec(points, detector.IndexTip), thumb)) > clickRadius {
		return false
	}
	if r3.Norm(r3.Sub(vec(points, detector.MiddleTip), thumb)) < clickSpacing {
		return false
	}
	return straight(points, fingers[2])
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
