package gesture

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
)

// StateType is the semantic gesture class driving the particle effect.
type StateType int

const (
	None StateType = iota
	Scatter
	Heart
	Attract
	Repel
	Swirl
)

var stateNames = [...]string{
	None:    "none",
	Scatter: "scatter",
	Heart:   "heart",
	Attract: "attract",
	Repel:   "repel",
	Swirl:   "swirl",
}

func (s StateType) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ParseStateType is the inverse of String. Unknown names map to None.
func ParseStateType(name string) StateType {
	for i, n := range stateNames {
		if n == name {
			return StateType(i)
		}
	}
	return None
}

// MarshalText encodes the state by name.
func (s StateType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name. Unknown names decode to None.
func (s *StateType) UnmarshalText(text []byte) error {
	*s = ParseStateType(string(text))
	return nil
}

// priority orders states when several hands compete.
func (s StateType) priority() int {
	switch s {
	case Heart:
		return 5
	case Swirl:
		return 4
	case Attract:
		return 3
	case Repel:
		return 2
	case Scatter:
		return 1
	}
	return 0
}

// HandState is the per-frame classification of one hand, or of the
// combined hands after Resolve. Target is in normalized image space and is
// nil for states without a focal point.
type HandState struct {
	Type     StateType
	Strength float64
	Target   *r3.Vec
}

// Discrete labels emitted by the gesture recognizer, compared after fold.
const (
	LabelClosedFist = "closedfist"
	LabelPointingUp = "pointingup"
	LabelOpenPalm   = "openpalm"
	LabelVictory    = "victory"
)

// foldLabel lowercases and strips separators so "Closed_Fist",
// "closed fist" and "closed-fist" compare equal.
func foldLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, label)
}

// Thresholds are the tuned decision boundaries of the classifier.
type Thresholds struct {
	FistClosure      float64 `env:"FIST_CLOSURE" envDefault:"0.5"`
	PalmOpen         float64 `env:"PALM_OPEN" envDefault:"0.6"`
	PointingStrength float64 `env:"POINTING_STRENGTH" envDefault:"0.8"`
}

// DefaultThresholds returns the empirically tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FistClosure:      0.5,
		PalmOpen:         0.6,
		PointingStrength: 0.8,
	}
}

// MaxHands is how many hands Resolve considers; extra hands are ignored.
const MaxHands = 2

// Classifier maps landmarks plus an optional discrete observation to a HandState.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a Classifier. Zero thresholds fall back to defaults.
func NewClassifier(th Thresholds) *Classifier {
	def := DefaultThresholds()
	if th.FistClosure <= 0 {
		th.FistClosure = def.FistClosure
	}
	if th.PalmOpen <= 0 {
		th.PalmOpen = def.PalmOpen
	}
	if th.PointingStrength <= 0 {
		th.PointingStrength = def.PointingStrength
	}
	return &Classifier{th: th}
}

// Classify returns the state of a single hand. The first matching rule wins:
// fist, pointing, open palm, victory, otherwise scatter. Malformed
// landmarks yield None.
func (c *Classifier) Classify(hand *detector.HandLandmarks) HandState {
	if hand == nil || !valid(hand.Points) {
		return HandState{Type: None}
	}
	points := hand.Points

	var label string
	var confidence float64
	if hand.Gesture != nil {
		label = foldLabel(hand.Gesture.Label)
		confidence = clamp01(hand.Gesture.Confidence)
	}

	// A label's confidence only counts toward the rule it names.
	confidenceFor := func(want string) float64 {
		if label == want {
			return confidence
		}
		return 0
	}

	closure := FistClosureDegree(points)
	if closure > c.th.FistClosure || label == LabelClosedFist {
		return HandState{Type: Heart, Strength: clamp01(max(closure, confidenceFor(LabelClosedFist)))}
	}

	if label == LabelPointingUp || IsPointing(points) {
		strength := confidenceFor(LabelPointingUp)
		if strength == 0 {
			strength = c.th.PointingStrength
		}
		tip := vec(points, detector.IndexTip)
		return HandState{Type: Attract, Strength: clamp01(strength), Target: &tip}
	}

	center, _ := PalmCenter(points)

	openness := PalmOpenDegree(points)
	if openness > c.th.PalmOpen || label == LabelOpenPalm {
		return HandState{Type: Repel, Strength: clamp01(max(openness, confidenceFor(LabelOpenPalm))), Target: &center}
	}

	if label == LabelVictory {
		return HandState{Type: Swirl, Strength: confidence, Target: &center}
	}

	return HandState{Type: Scatter}
}

// Resolve classifies up to MaxHands hands and combines them by priority
// Heart > Swirl > Attract > Repel > Scatter, ties going to the stronger
// hand and then to the lower index. The returned index identifies the
// active hand, or -1 when no hand produced a state.
func (c *Classifier) Resolve(hands []detector.HandLandmarks) (HandState, int) {
	best := HandState{Type: None}
	active := -1

	for i := range hands {
		if i >= MaxHands {
			break
		}
		st := c.Classify(&hands[i])
		if st.Type == None {
			continue
		}
		if active < 0 ||
			st.Type.priority() > best.Type.priority() ||
			(st.Type == best.Type && st.Strength > best.Strength) {
			best, active = st, i
		}
	}
	return best, active
}
