// Package particle runs the orbital particle simulation. Groups live in an
// Arena indexed by integer id, and a Worker owns the Arena on its own
// goroutine so callers only ever exchange plain messages with it.
package particle

import (
	"strings"

	"github.com/tanema/gween/ease"
)

// Params holds the tuning constants of the simulation. Force coefficients
// are per step; distances are in simulation units.
type Params struct {
	ParticleCount int `env:"COUNT" envDefault:"1200"`
	Layers        int `env:"LAYERS" envDefault:"3"`

	MinOrbitRadius float64 `env:"MIN_ORBIT_RADIUS" envDefault:"1.0"`
	MaxOrbitRadius float64 `env:"MAX_ORBIT_RADIUS" envDefault:"4.0"`
	BoundaryRadius float64 `env:"BOUNDARY_RADIUS" envDefault:"6.0"`

	// RotationSpeed is the resting orbital angular speed in rad/s.
	RotationSpeed float64 `env:"ROTATION_SPEED" envDefault:"0.4"`
	// SpeedBoost is the extra fraction of RotationSpeed at full strength.
	SpeedBoost float64 `env:"SPEED_BOOST" envDefault:"0.5"`

	ScaleSmoothing float64 `env:"SCALE_SMOOTHING" envDefault:"0.08"`
	Contraction    float64 `env:"CONTRACTION" envDefault:"0.6"`
	// StrengthFloor is the strength below which forces contribute nothing.
	StrengthFloor float64 `env:"STRENGTH_FLOOR" envDefault:"0.3"`
	// StrengthEase names the gween curve applied to the remapped strength.
	StrengthEase string `env:"STRENGTH_EASE" envDefault:"inoutquad"`

	Spring      float64 `env:"SPRING" envDefault:"0.04"`
	Tangential  float64 `env:"TANGENTIAL" envDefault:"0.05"`
	Centripetal float64 `env:"CENTRIPETAL" envDefault:"0.02"`

	HeartPull   float64 `env:"HEART_PULL" envDefault:"0.08"`
	AttractPull float64 `env:"ATTRACT_PULL" envDefault:"0.06"`
	RepelPush   float64 `env:"REPEL_PUSH" envDefault:"0.12"`
	RepelRadius float64 `env:"REPEL_RADIUS" envDefault:"3.0"`
	SwirlForce  float64 `env:"SWIRL_FORCE" envDefault:"0.03"`
	ColorEase   float64 `env:"COLOR_EASE" envDefault:"0.05"`

	Damping    float64 `env:"DAMPING" envDefault:"0.06"`
	MaxSpeed   float64 `env:"MAX_SPEED" envDefault:"0.5"`
	SoftWall   float64 `env:"SOFT_WALL" envDefault:"0.1"`
	BounceLoss float64 `env:"BOUNCE_LOSS" envDefault:"0.7"`
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		ParticleCount:  1200,
		Layers:         3,
		MinOrbitRadius: 1.0,
		MaxOrbitRadius: 4.0,
		BoundaryRadius: 6.0,
		RotationSpeed:  0.4,
		SpeedBoost:     0.5,
		ScaleSmoothing: 0.08,
		Contraction:    0.6,
		StrengthFloor:  0.3,
		StrengthEase:   "inoutquad",
		Spring:         0.04,
		Tangential:     0.05,
		Centripetal:    0.02,
		HeartPull:      0.08,
		AttractPull:    0.06,
		RepelPush:      0.12,
		RepelRadius:    3.0,
		SwirlForce:     0.03,
		ColorEase:      0.05,
		Damping:        0.06,
		MaxSpeed:       0.5,
		SoftWall:       0.1,
		BounceLoss:     0.7,
	}
}

// normalized fills zero or inconsistent fields from the defaults.
func (p Params) normalized() Params {
	def := DefaultParams()
	if p.ParticleCount <= 0 {
		p.ParticleCount = def.ParticleCount
	}
	if p.Layers <= 0 {
		p.Layers = def.Layers
	}
	if p.MinOrbitRadius <= 0 {
		p.MinOrbitRadius = def.MinOrbitRadius
	}
	if p.MaxOrbitRadius < p.MinOrbitRadius {
		p.MaxOrbitRadius = p.MinOrbitRadius
	}
	if p.BoundaryRadius <= p.MaxOrbitRadius {
		p.BoundaryRadius = p.MaxOrbitRadius * 1.5
	}
	if p.ScaleSmoothing <= 0 || p.ScaleSmoothing > 1 {
		p.ScaleSmoothing = def.ScaleSmoothing
	}
	if p.Damping < 0 || p.Damping >= 1 {
		p.Damping = def.Damping
	}
	if p.MaxSpeed <= 0 {
		p.MaxSpeed = def.MaxSpeed
	}
	if p.BounceLoss < 0 || p.BounceLoss > 1 {
		p.BounceLoss = def.BounceLoss
	}
	if p.StrengthFloor < 0 || p.StrengthFloor >= 1 {
		p.StrengthFloor = def.StrengthFloor
	}
	return p
}

var easeCurves = map[string]ease.TweenFunc{
	"linear":    ease.Linear,
	"inquad":    ease.InQuad,
	"outquad":   ease.OutQuad,
	"inoutquad": ease.InOutQuad,
	"incubic":   ease.InCubic,
	"outcubic":  ease.OutCubic,
	"inoutsine": ease.InOutSine,
}

// easeFunc resolves a curve name, falling back to linear.
func easeFunc(name string) ease.TweenFunc {
	if fn, ok := easeCurves[strings.ToLower(name)]; ok {
		return fn
	}
	return ease.Linear
}
