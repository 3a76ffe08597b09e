package manipulate

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/tanema/gween/ease"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects which pair of points drives the session.
type Mode int

const (
	// SingleHand uses one hand's thumb tip and index tip.
	SingleHand Mode = iota
	// TwoHand uses the palm centers of two hands.
	TwoHand
)

func (m Mode) String() string {
	if m == TwoHand {
		return "two_hand"
	}
	return "single_hand"
}

// EventType classifies one tracker update.
type EventType int

const (
	Pinch EventType = iota + 1
	Scale
	Move
)

func (e EventType) String() string {
	switch e {
	case Pinch:
		return "pinch"
	case Scale:
		return "scale"
	case Move:
		return "move"
	}
	return "none"
}

// Event is emitted for every update after the first one of a session.
type Event struct {
	Type           EventType
	Center         r3.Vec
	Distance       float64
	DistanceChange float64
}

// ModeConfig holds the thresholds of one input mode. Zero fields fall back
// to the mode's defaults.
type ModeConfig struct {
	DistanceThreshold float64 `env:"DISTANCE_THRESHOLD"`
	ReleaseThreshold  float64 `env:"RELEASE_THRESHOLD"`
	MinScale          float64 `env:"MIN_SCALE"`
	MaxScale          float64 `env:"MAX_SCALE"`
	Sensitivity       float64 `env:"SENSITIVITY"`
}

// DefaultModeConfig returns the tuned defaults for m.
func DefaultModeConfig(m Mode) ModeConfig {
	if m == TwoHand {
		return ModeConfig{
			DistanceThreshold: 0.02,
			ReleaseThreshold:  0.30,
			MinScale:          0.2,
			MaxScale:          6.0,
			Sensitivity:       5,
		}
	}
	return ModeConfig{
		DistanceThreshold: 0.03,
		ReleaseThreshold:  0.15,
		MinScale:          0.3,
		MaxScale:          5.0,
		Sensitivity:       8,
	}
}

func (c ModeConfig) withDefaults(m Mode) ModeConfig {
	def := DefaultModeConfig(m)
	if c.DistanceThreshold <= 0 {
		c.DistanceThreshold = def.DistanceThreshold
	}
	if c.ReleaseThreshold <= 0 {
		c.ReleaseThreshold = def.ReleaseThreshold
	}
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale <= c.MinScale {
		c.MaxScale = math.Max(def.MaxScale, c.MinScale)
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = def.Sensitivity
	}
	return c
}

// Config configures a Tracker.
type Config struct {
	Single ModeConfig `envPrefix:"SINGLE_"`
	Two    ModeConfig `envPrefix:"TWO_"`

	// RestBlend and FastBlend bound the per-update interpolation factor
	// from the smoothed target into the transform position. FastSpeed is
	// the target speed in world units per second at which FastBlend applies.
	RestBlend float64 `env:"REST_BLEND" envDefault:"0.15"`
	FastBlend float64 `env:"FAST_BLEND" envDefault:"0.6"`
	FastSpeed float64 `env:"FAST_SPEED" envDefault:"20"`

	// UpdateFPS is the expected update rate, used to step the display scale spring.
	UpdateFPS int `env:"UPDATE_FPS" envDefault:"10"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Single:    DefaultModeConfig(SingleHand),
		Two:       DefaultModeConfig(TwoHand),
		RestBlend: 0.15,
		FastBlend: 0.6,
		FastSpeed: 20,
		UpdateFPS: 10,
	}
}

const historySize = 5

// session is the ephemeral state of one two-point gesture.
type session struct {
	active       bool
	lastDistance float64
	lastCenter   r3.Vec

	history [historySize]r3.Vec
	head    int
	count   int
}

func (s *session) push(p r3.Vec) {
	s.history[s.head] = p
	s.head = (s.head + 1) % historySize
	if s.count < historySize {
		s.count++
	}
}

// smoothed is the linearly weighted mean of the history, the newest sample
// weighing count and the oldest weighing 1.
func (s *session) smoothed() r3.Vec {
	var sum r3.Vec
	var total float64
	for i := 0; i < s.count; i++ {
		idx := (s.head - s.count + i + historySize) % historySize
		w := float64(i + 1)
		sum = r3.Add(sum, r3.Scale(w, s.history[idx]))
		total += w
	}
	if total == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/total, sum)
}

// Tracker maintains at most one manipulation session and the transform it
// drives. It is synchronous and not safe for concurrent use.
type Tracker struct {
	cfg  Config
	mode Mode

	sess session

	transform   Transform
	// display trails transform.Scale through a damped spring for
	// rendering; it never feeds back into the transform.
	display    float64
	displayVel float64
	spring     harmonica.Spring

	velocity   r3.Vec
	lastTarget r3.Vec
	hasTarget  bool
	lastUpdate time.Time
}

// NewTracker creates a Tracker in SingleHand mode with a default transform.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	cfg.Single = cfg.Single.withDefaults(SingleHand)
	cfg.Two = cfg.Two.withDefaults(TwoHand)
	if cfg.RestBlend <= 0 {
		cfg.RestBlend = def.RestBlend
	}
	if cfg.FastBlend < cfg.RestBlend {
		cfg.FastBlend = math.Max(def.FastBlend, cfg.RestBlend)
	}
	if cfg.FastSpeed <= 0 {
		cfg.FastSpeed = def.FastSpeed
	}
	if cfg.UpdateFPS <= 0 {
		cfg.UpdateFPS = def.UpdateFPS
	}

	t := &Tracker{
		cfg:       cfg,
		transform: DefaultTransform(),
		spring:    harmonica.NewSpring(harmonica.FPS(cfg.UpdateFPS), 6.0, 1.0),
	}
	t.display = t.transform.Scale
	return t
}

func (t *Tracker) modeConfig() ModeConfig {
	if t.mode == TwoHand {
		return t.cfg.Two
	}
	return t.cfg.Single
}

// Mode returns the current input mode.
func (t *Tracker) Mode() Mode { return t.mode }

// SetMode switches input modes. Switching ends any running session.
func (t *Tracker) SetMode(m Mode) {
	if m == t.mode {
		return
	}
	t.End()
	t.mode = m
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool { return t.sess.active }

// Transform returns a copy of the current transform.
func (t *Tracker) Transform() Transform { return t.transform }

// Velocity returns the smoothed target velocity in world units per second.
func (t *Tracker) Velocity() r3.Vec { return t.velocity }

// ToggleRotation flips RotationEnabled and returns the new value.
func (t *Tracker) ToggleRotation() bool {
	t.transform.RotationEnabled = !t.transform.RotationEnabled
	return t.transform.RotationEnabled
}

// End terminates the session, clearing distance, center, history and
// velocity. The transform keeps its last value.
func (t *Tracker) End() {
	t.sess = session{}
	t.velocity = r3.Vec{}
	t.hasTarget = false
	t.settleDisplay()
}

// Update feeds one pair of points in normalized image space. A nil point
// or a distance beyond the release threshold ends the session. The first
// sample of a session is stored and yields nil.
func (t *Tracker) Update(a, b *r3.Vec, now time.Time) *Event {
	if a == nil || b == nil || !finite(*a) || !finite(*b) {
		t.End()
		return nil
	}
	cfg := t.modeConfig()

	distance := r3.Norm(r3.Sub(*a, *b))
	center := r3.Scale(0.5, r3.Add(*a, *b))

	if distance > cfg.ReleaseThreshold {
		t.End()
		return nil
	}

	if !t.sess.active {
		t.sess.active = true
		t.sess.lastDistance = distance
		t.sess.lastCenter = center
		t.sess.push(center)
		t.lastUpdate = now
		return nil
	}

	change := distance - t.sess.lastDistance
	ev := &Event{Center: center, Distance: distance, DistanceChange: change}

	if math.Abs(change) < cfg.DistanceThreshold {
		ev.Type = Move
		if t.mode == SingleHand {
			ev.Type = Pinch
		}
		t.sess.push(center)
		t.move(t.sess.smoothed(), now)
	} else {
		ev.Type = Scale
		t.transform.Scale = clamp(t.transform.Scale+change*cfg.Sensitivity, cfg.MinScale, cfg.MaxScale)
		t.stepDisplay()
	}

	t.sess.lastDistance = distance
	t.sess.lastCenter = center
	t.lastUpdate = now
	return ev
}

// move blends the smoothed target into the transform position. The blend
// factor grows with the target's speed so fast motion does not lag and a
// hand at rest does not jitter.
func (t *Tracker) move(smoothed r3.Vec, now time.Time) {
	target := ToWorld(smoothed, t.transform.Position.Z)

	dt := now.Sub(t.lastUpdate).Seconds()
	dt = clamp(dt, 0.001, 0.25)

	if t.hasTarget {
		t.velocity = r3.Scale(1/dt, r3.Sub(target, t.lastTarget))
	}
	t.lastTarget = target
	t.hasTarget = true

	factor := t.blendFactor(r3.Norm(t.velocity))
	pos := r3.Add(t.transform.Position, r3.Scale(factor, r3.Sub(target, t.transform.Position)))
	t.transform.Position = ClampPosition(pos)
}

func (t *Tracker) blendFactor(speed float64) float64 {
	x := clamp(speed/t.cfg.FastSpeed, 0, 1)
	shaped := float64(ease.OutQuad(float32(x), 0, 1, 1))
	return t.cfg.RestBlend + (t.cfg.FastBlend-t.cfg.RestBlend)*shaped
}

// DisplayScale is the spring-smoothed scale for rendering. It converges
// on Transform().Scale and snaps to it when a session ends.
func (t *Tracker) DisplayScale() float64 { return t.display }

// stepDisplay advances the critically damped display spring one update.
func (t *Tracker) stepDisplay() {
	t.display, t.displayVel = t.spring.Update(t.display, t.displayVel, t.transform.Scale)
}

func (t *Tracker) settleDisplay() {
	t.display = t.transform.Scale
	t.displayVel = 0
}
