package gesture

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/mudra/internal/detector"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(Thresholds{})

	tests := []struct {
		name        string
		hand        detector.HandLandmarks
		want        StateType
		minStrength float64
		wantTarget  bool
	}{
		{name: "fist is heart", hand: detector.FistLandmarks(), want: Heart, minStrength: 0.65},
		{name: "open palm is repel", hand: detector.OpenPalmLandmarks(), want: Repel, minStrength: 0.95, wantTarget: true},
		{name: "pointing is attract", hand: detector.PointingLandmarks(), want: Attract, minStrength: 0.8, wantTarget: true},
		{name: "victory without label is scatter", hand: detector.VictoryLandmarks(), want: Scatter},
		{
			name: "victory label is swirl",
			hand: detector.WithGesture(detector.VictoryLandmarks(), "Victory", 0.9),
			want: Swirl, minStrength: 0.9, wantTarget: true,
		},
		{
			name: "closed fist label wins over open geometry",
			hand: detector.WithGesture(detector.OpenPalmLandmarks(), "Closed_Fist", 0.7),
			want: Heart, minStrength: 0.7,
		},
		{
			name: "pointing up label uses confidence",
			hand: detector.WithGesture(detector.FlexedLandmarks(0.6), "pointing up", 0.55),
			want: Attract, minStrength: 0.55, wantTarget: true,
		},
		{
			name: "open palm label",
			hand: detector.WithGesture(detector.FlexedLandmarks(0.7), "open-palm", 0.65),
			want: Repel, minStrength: 0.65, wantTarget: true,
		},
		{name: "half flexed is scatter", hand: detector.FlexedLandmarks(0.65), want: Scatter},
		{name: "malformed is none", hand: detector.HandLandmarks{Points: make([]detector.Point3D, 3)}, want: None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(&tt.hand)

			if got.Type != tt.want {
				t.Fatalf("Classify().Type = %v, want %v", got.Type, tt.want)
			}
			if got.Strength < tt.minStrength-1e-9 || got.Strength > 1 {
				t.Errorf("Classify().Strength = %f, want in [%f, 1]", got.Strength, tt.minStrength)
			}
			if (got.Target != nil) != tt.wantTarget {
				t.Errorf("Classify().Target = %v, wantTarget %v", got.Target, tt.wantTarget)
			}
		})
	}
}

func TestClassifier_AttractTargetsIndexTip(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	hand := detector.PointingLandmarks()

	got := c.Classify(&hand)

	tip := hand.Points[detector.IndexTip]
	if got.Target == nil || got.Target.X != tip.X || got.Target.Y != tip.Y || got.Target.Z != tip.Z {
		t.Errorf("expected target at index tip %+v, got %+v", tip, got.Target)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	for _, hand := range []detector.HandLandmarks{
		detector.OpenPalmLandmarks(),
		detector.FistLandmarks(),
		detector.PointingLandmarks(),
		detector.WithGesture(detector.VictoryLandmarks(), "Victory", 0.8),
	} {
		first := c.Classify(&hand)
		second := c.Classify(&hand)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Classify() not deterministic (-first +second):\n%s", diff)
		}
	}
}

func TestClassifier_Resolve(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name       string
		hands      []detector.HandLandmarks
		want       StateType
		wantActive int
	}{
		{name: "no hands", hands: nil, want: None, wantActive: -1},
		{name: "malformed only", hands: []detector.HandLandmarks{{}}, want: None, wantActive: -1},
		{
			name:  "heart beats repel",
			hands: []detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.FistLandmarks()},
			want:  Heart, wantActive: 1,
		},
		{
			name: "swirl beats attract",
			hands: []detector.HandLandmarks{
				detector.PointingLandmarks(),
				detector.WithGesture(detector.VictoryLandmarks(), "Victory", 0.6),
			},
			want: Swirl, wantActive: 1,
		},
		{
			name:  "attract beats repel",
			hands: []detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.PointingLandmarks()},
			want:  Attract, wantActive: 1,
		},
		{
			name: "tie broken by strength",
			hands: []detector.HandLandmarks{
				detector.WithGesture(detector.FistLandmarks(), "Closed_Fist", 0.75),
				detector.WithGesture(detector.FistLandmarks(), "Closed_Fist", 0.95),
			},
			want: Heart, wantActive: 1,
		},
		{
			name:  "equal tie keeps first hand",
			hands: []detector.HandLandmarks{detector.FistLandmarks(), detector.FistLandmarks()},
			want:  Heart, wantActive: 0,
		},
		{
			name: "third hand ignored",
			hands: []detector.HandLandmarks{
				detector.OpenPalmLandmarks(),
				detector.OpenPalmLandmarks(),
				detector.FistLandmarks(),
			},
			want: Repel, wantActive: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, active := c.Resolve(tt.hands)
			if got.Type != tt.want {
				t.Errorf("Resolve().Type = %v, want %v", got.Type, tt.want)
			}
			if active != tt.wantActive {
				t.Errorf("Resolve() active = %d, want %d", active, tt.wantActive)
			}
		})
	}
}

func TestClassifier_OpenToFistSequence(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	var sawRepel, sawHeart bool
	lastHeart := -1.0
	for i := 0; i < 30; i++ {
		flex := 0.33 + 0.67*float64(i)/29
		hand := detector.FlexedLandmarks(flex)
		st := c.Classify(&hand)

		switch st.Type {
		case Repel:
			if sawHeart {
				t.Fatalf("frame %d: repel after heart", i)
			}
			sawRepel = true
		case Heart:
			if st.Strength < lastHeart {
				t.Fatalf("frame %d: heart strength decreased %f < %f", i, st.Strength, lastHeart)
			}
			lastHeart = st.Strength
			sawHeart = true
		}
	}

	if !sawRepel || !sawHeart {
		t.Errorf("expected both repel and heart, got repel=%v heart=%v", sawRepel, sawHeart)
	}
	if math.Abs(lastHeart-FistClosureDegree(detector.FistLandmarks().Points)) > 1e-9 {
		t.Errorf("final heart strength %f should equal fist closure", lastHeart)
	}
}

func TestStateType_String(t *testing.T) {
	for _, s := range []StateType{None, Scatter, Heart, Attract, Repel, Swirl} {
		if got := ParseStateType(s.String()); got != s {
			t.Errorf("ParseStateType(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if StateType(42).String() != "unknown" {
		t.Error("expected unknown for out-of-range state")
	}
}
