package particle

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/gesture"
)

const eps = 1e-9

// maxStepTime caps the time advanced by one update so a stalled caller
// does not spin the orbit forward in a single jump.
const maxStepTime = 0.1

// Group is one cloud of particles orbiting its offset. Positions and
// velocities are stored relative to the offset.
type Group struct {
	ID     int
	Offset r3.Vec
	Mode   gesture.StateType
	// Scale is the contraction factor in [0,1]; 1 is fully expanded.
	Scale  float64
	Locked bool

	pos   []r3.Vec
	vel   []r3.Vec
	color []r3.Vec

	baseRadius []float64
	baseAngle  []float64
	baseZ      []float64
	layer      []int

	phase    float64
	lastTime float64
	started  bool
}

// newGroup lays n particles out over the configured layers. Layout is
// deterministic for a given id.
func newGroup(id, n int, offset r3.Vec, p Params) *Group {
	g := &Group{
		ID:         id,
		Offset:     offset,
		Mode:       gesture.Scatter,
		Scale:      1,
		pos:        make([]r3.Vec, n),
		vel:        make([]r3.Vec, n),
		color:      make([]r3.Vec, n),
		baseRadius: make([]float64, n),
		baseAngle:  make([]float64, n),
		baseZ:      make([]float64, n),
		layer:      make([]int, n),
	}

	rng := rand.New(rand.NewPCG(uint64(id), 0x6d75647261))
	layers := p.Layers
	if layers > n {
		layers = max(n, 1)
	}
	band := (p.MaxOrbitRadius - p.MinOrbitRadius) / float64(layers)

	for i := 0; i < n; i++ {
		l := i * layers / n
		first := l * n / layers
		count := (l+1)*n/layers - first
		j := i - first

		radius := p.MinOrbitRadius
		if layers > 1 {
			radius += (p.MaxOrbitRadius - p.MinOrbitRadius) * float64(l) / float64(layers-1)
		}
		// Spread each layer into a thin shell just outside its radius.
		radius += rng.Float64() * band * 0.25
		radius = math.Min(radius, p.MaxOrbitRadius)

		step := 2 * math.Pi / float64(count)
		angle := float64(j)*step + float64(l)*step/float64(layers)

		g.layer[i] = l
		g.baseRadius[i] = radius
		g.baseAngle[i] = angle
		g.baseZ[i] = (rng.Float64() - 0.5) * 0.4
		g.pos[i] = r3.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle), Z: g.baseZ[i]}
		g.color[i] = restColor(l, layers)
	}
	return g
}

// Len returns the fixed particle count.
func (g *Group) Len() int { return len(g.pos) }

// effectiveStrength remaps strength so values at or below the floor
// contribute nothing, then shapes it with the configured curve.
func effectiveStrength(strength float64, p Params) float64 {
	x := clamp01((strength - p.StrengthFloor) / (1 - p.StrengthFloor))
	return clamp01(float64(easeFunc(p.StrengthEase)(float32(x), 0, 1, 1)))
}

// step advances the group by one frame. target is in group-local
// coordinates and may be nil.
func (g *Group) step(in GroupData, target *r3.Vec, now float64, p Params) {
	g.Locked = in.Locked
	if !g.Locked {
		g.Mode = in.Mode
	}
	strength := clamp01(in.Strength)
	eff := effectiveStrength(strength, p)

	dt := 0.0
	if g.started {
		dt = math.Max(0, math.Min(now-g.lastTime, maxStepTime))
	}
	g.lastTime = now
	g.started = true

	// Contraction only while the hand is closed; other modes relax back.
	scaleTarget := 1.0
	if g.Mode == gesture.Heart {
		scaleTarget = 1 - eff*p.Contraction
	}
	g.Scale = clamp01(g.Scale + (scaleTarget-g.Scale)*p.ScaleSmoothing)

	omega := p.RotationSpeed * (1 + p.SpeedBoost*eff)
	angularStep := omega * dt
	g.phase = math.Mod(g.phase+angularStep, 2*math.Pi)

	layers := 1
	if n := len(g.layer); n > 0 {
		layers = g.layer[n-1] + 1
	}

	for i := range g.pos {
		g.stepParticle(i, layers, eff, strength, angularStep, target, p)
	}
}

func (g *Group) stepParticle(i, layers int, eff, strength, angularStep float64, target *r3.Vec, p Params) {
	pos, vel := g.pos[i], g.vel[i]

	// 1. Contracted orbit radius.
	radius := p.MinOrbitRadius + (g.baseRadius[i]-p.MinOrbitRadius)*g.Scale

	// 2-3. Spring toward the ideal orbital slot plus a tangential correction.
	angle := g.baseAngle[i] + g.phase
	sin, cos := math.Sincos(angle)
	ideal := r3.Vec{X: radius * cos, Y: radius * sin, Z: g.baseZ[i] * g.Scale}
	vel = r3.Add(vel, r3.Scale(p.Spring, r3.Sub(ideal, pos)))

	tangent := r3.Vec{X: -sin, Y: cos}
	vt := r3.Dot(vel, tangent)
	vel = r3.Add(vel, r3.Scale((radius*angularStep-vt)*p.Tangential, tangent))

	dist := r3.Norm(pos)
	if limit := 1.3 * radius; dist > limit {
		vel = r3.Sub(vel, r3.Scale((dist-limit)*p.Centripetal/dist, pos))
	}

	// 4. Mode force and color.
	colorTarget := restColor(g.layer[i], layers)
	switch g.Mode {
	case gesture.Heart:
		if dist > eps {
			pull := p.HeartPull * eff / math.Max(dist, 0.5)
			vel = r3.Sub(vel, r3.Scale(pull/dist, pos))
		}
		colorTarget = heatColor(1 - dist/p.MaxOrbitRadius)
	case gesture.Attract:
		if target != nil {
			to := r3.Sub(*target, pos)
			if d := r3.Norm(to); d > eps {
				pull := p.AttractPull * strength / math.Max(d, 0.5)
				vel = r3.Add(vel, r3.Scale(pull/d, to))
			}
		}
		colorTarget = colorCyan
	case gesture.Repel:
		if target != nil {
			away := r3.Sub(pos, *target)
			if d := r3.Norm(away); d > eps && d < p.RepelRadius {
				push := p.RepelPush * strength * (1 - d/p.RepelRadius)
				vel = r3.Add(vel, r3.Scale(push/d, away))
			}
		}
		colorTarget = colorGold
	case gesture.Swirl:
		if target != nil {
			to := r3.Sub(*target, pos)
			to.Z = 0
			if d := r3.Norm(to); d > eps && d < p.RepelRadius {
				around := r3.Vec{X: -to.Y / d, Y: to.X / d}
				vel = r3.Add(vel, r3.Scale(p.SwirlForce*strength, around))
			}
		}
		colorTarget = colorViolet
	}
	g.color[i] = lerpColor(g.color[i], colorTarget, p.ColorEase)

	// 5. Damping, speed limit and integration.
	vel = r3.Scale(1-p.Damping, vel)
	if speed := r3.Norm(vel); speed > p.MaxSpeed {
		vel = r3.Scale(p.MaxSpeed/speed, vel)
	}
	pos = r3.Add(pos, vel)

	// 6. Soft wall then hard boundary with an attenuated bounce.
	dist = r3.Norm(pos)
	if soft := 0.95 * p.BoundaryRadius; dist > soft {
		vel = r3.Sub(vel, r3.Scale((dist-soft)*p.SoftWall/dist, pos))
	}
	if dist > p.BoundaryRadius {
		normal := r3.Scale(1/dist, pos)
		pos = r3.Scale(p.BoundaryRadius, normal)
		if vr := r3.Dot(vel, normal); vr > 0 {
			vel = r3.Sub(vel, r3.Scale(vr*(2-p.BounceLoss), normal))
		}
	}

	if !finiteVec(pos) || !finiteVec(vel) {
		pos, vel = ideal, r3.Vec{}
	}
	g.pos[i], g.vel[i] = pos, vel
}

// buffers copies positions (offset applied) and colors into fresh slices.
func (g *Group) buffers() Buffers {
	n := len(g.pos)
	b := Buffers{
		Positions: make([]float32, 3*n),
		Colors:    make([]float32, 3*n),
	}
	for i := range g.pos {
		p := r3.Add(g.pos[i], g.Offset)
		b.Positions[3*i] = float32(p.X)
		b.Positions[3*i+1] = float32(p.Y)
		b.Positions[3*i+2] = float32(p.Z)
		c := g.color[i]
		b.Colors[3*i] = float32(c.X)
		b.Colors[3*i+1] = float32(c.Y)
		b.Colors[3*i+2] = float32(c.Z)
	}
	return b
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func finiteVec(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
