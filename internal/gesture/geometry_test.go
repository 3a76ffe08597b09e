package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func TestFistClosureDegree(t *testing.T) {
	tests := []struct {
		name     string
		hand     detector.HandLandmarks
		min, max float64
	}{
		{name: "open palm", hand: detector.OpenPalmLandmarks(), min: 0, max: 0.1},
		{name: "fist", hand: detector.FistLandmarks(), min: 0.65, max: 0.8},
		{name: "pointing", hand: detector.PointingLandmarks(), min: 0.3, max: 0.5},
		{name: "victory", hand: detector.VictoryLandmarks(), min: 0.35, max: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FistClosureDegree(tt.hand.Points)
			if got < tt.min || got > tt.max {
				t.Errorf("FistClosureDegree() = %f, want in [%f, %f]", got, tt.min, tt.max)
			}
		})
	}
}

func TestFistClosureDegree_Monotonic(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 50; i++ {
		flex := float64(i) / 50
		got := FistClosureDegree(detector.FlexedLandmarks(flex).Points)
		if got < prev-1e-12 {
			t.Fatalf("closure decreased at flex %.2f: %f < %f", flex, got, prev)
		}
		prev = got
	}
}

func TestPalmOpenDegree(t *testing.T) {
	if got := PalmOpenDegree(detector.OpenPalmLandmarks().Points); got < 0.95 {
		t.Errorf("open palm: PalmOpenDegree() = %f, want >= 0.95", got)
	}
	if got := PalmOpenDegree(detector.FistLandmarks().Points); got != 0 {
		t.Errorf("fist: PalmOpenDegree() = %f, want 0", got)
	}

	prev := 2.0
	for i := 0; i <= 20; i++ {
		got := PalmOpenDegree(detector.FlexedLandmarks(float64(i) / 20).Points)
		if got > prev+1e-12 {
			t.Fatalf("openness increased while flexing: %f > %f", got, prev)
		}
		prev = got
	}
}

func TestIsFingerStraight(t *testing.T) {
	tests := []struct {
		name          string
		tip, pip, mcp detector.Point3D
		want          bool
	}{
		{
			name: "collinear",
			tip:  detector.Point3D{Y: 0.2}, pip: detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: true,
		},
		{
			name: "20 degree bend",
			tip:  detector.Point3D{X: 0.1 * math.Sin(20*math.Pi/180), Y: 0.1 + 0.1*math.Cos(20*math.Pi/180)},
			pip:  detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: true,
		},
		{
			name: "30 degree bend",
			tip:  detector.Point3D{X: 0.1 * math.Sin(30*math.Pi/180), Y: 0.1 + 0.1*math.Cos(30*math.Pi/180)},
			pip:  detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: false,
		},
		{
			name: "right angle",
			tip:  detector.Point3D{X: 0.1, Y: 0.1}, pip: detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: false,
		},
		{
			name: "degenerate segment",
			tip:  detector.Point3D{Y: 0.1}, pip: detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: false,
		},
		{
			name: "NaN",
			tip:  detector.Point3D{Y: math.NaN()}, pip: detector.Point3D{Y: 0.1}, mcp: detector.Point3D{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFingerStraight(tt.tip, tt.pip, tt.mcp); got != tt.want {
				t.Errorf("IsFingerStraight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandShapes(t *testing.T) {
	tests := []struct {
		name                            string
		hand                            detector.HandLandmarks
		pointing, victory, pinch, click bool
	}{
		{name: "open palm", hand: detector.OpenPalmLandmarks()},
		{name: "fist", hand: detector.FistLandmarks()},
		{name: "pointing", hand: detector.PointingLandmarks(), pointing: true},
		{name: "victory", hand: detector.VictoryLandmarks(), victory: true},
		{name: "pinch", hand: detector.PinchLandmarks(), pinch: true},
		{name: "click", hand: detector.ClickLandmarks(), click: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.hand.Points
			if got := IsPointing(p); got != tt.pointing {
				t.Errorf("IsPointing() = %v, want %v", got, tt.pointing)
			}
			if got := IsVictory(p); got != tt.victory {
				t.Errorf("IsVictory() = %v, want %v", got, tt.victory)
			}
			if got := IsFiveFingerPinch(p); got != tt.pinch {
				t.Errorf("IsFiveFingerPinch() = %v, want %v", got, tt.pinch)
			}
			if got := IsClick(p); got != tt.click {
				t.Errorf("IsClick() = %v, want %v", got, tt.click)
			}
		})
	}
}

func TestIsClick_MiddleFingerMustStayClear(t *testing.T) {
	withMiddleTip := func(at detector.Point3D) []detector.Point3D {
		h := detector.ClickLandmarks()
		p := append([]detector.Point3D(nil), h.Points...)
		p[detector.MiddleTip] = at
		return p
	}
	thumb := detector.ClickLandmarks().Points[detector.ThumbTip]

	tests := []struct {
		name   string
		points []detector.Point3D
		want   bool
	}{
		{name: "middle extended", points: detector.ClickLandmarks().Points, want: true},
		{name: "middle tip on the thumb", points: withMiddleTip(detector.Point3D{X: thumb.X + 0.01, Y: thumb.Y, Z: thumb.Z})},
		{name: "five finger pinch", points: detector.PinchLandmarks().Points},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClick(tt.points); got != tt.want {
				t.Errorf("IsClick() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMalformedInput(t *testing.T) {
	inputs := map[string][]detector.Point3D{
		"nil":     nil,
		"short":   detector.OpenPalmLandmarks().Points[:20],
		"long":    append(detector.OpenPalmLandmarks().Points, detector.Point3D{}),
		"non-finite": func() []detector.Point3D {
			p := detector.FistLandmarks().Points
			p[detector.MiddleTip].Z = math.Inf(-1)
			return p
		}(),
	}

	for name, points := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := FistClosureDegree(points); got != 0 {
				t.Errorf("FistClosureDegree() = %f, want 0", got)
			}
			if got := PalmOpenDegree(points); got != 0 {
				t.Errorf("PalmOpenDegree() = %f, want 0", got)
			}
			if IsPointing(points) || IsVictory(points) || IsFiveFingerPinch(points) || IsClick(points) {
				t.Error("expected no shape for malformed input")
			}
			if _, ok := PalmCenter(points); ok {
				t.Error("PalmCenter should report !ok")
			}
		})
	}
}
