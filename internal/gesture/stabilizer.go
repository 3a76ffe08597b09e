package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Trigger is a discrete one-shot event produced by the Stabilizer.
type Trigger int

const (
	NoTrigger Trigger = iota
	// TriggerCreate spawns a particle group (five-finger pinch).
	TriggerCreate
	// TriggerDelete destroys the particle group (victory sign).
	TriggerDelete
	// TriggerClick toggles the manipulated object's rotation (index-thumb tap).
	TriggerClick
)

// triggerOrder is the per-frame evaluation order; at most one trigger fires.
var triggerOrder = [...]Trigger{TriggerCreate, TriggerDelete, TriggerClick}

func (t Trigger) String() string {
	switch t {
	case TriggerCreate:
		return "create"
	case TriggerDelete:
		return "delete"
	case TriggerClick:
		return "click"
	}
	return "none"
}

// StabilizerConfig sets the window length and debounce per trigger class.
type StabilizerConfig struct {
	Window         int           `env:"WINDOW" envDefault:"4"`
	LifecycleDelay time.Duration `env:"LIFECYCLE_DEBOUNCE" envDefault:"1s"`
	ClickDelay     time.Duration `env:"CLICK_DEBOUNCE" envDefault:"300ms"`
}

// DefaultStabilizerConfig returns K=4, 1s for create/delete, 300ms for click.
func DefaultStabilizerConfig() StabilizerConfig {
	return StabilizerConfig{
		Window:         4,
		LifecycleDelay: time.Second,
		ClickDelay:     300 * time.Millisecond,
	}
}

type triggerState struct {
	streak   int
	lastFire time.Time
	fired    bool
}

// Stabilizer turns noisy per-frame booleans into debounced one-shot
// triggers. A trigger fires after Window consecutive true observations,
// and not again until its debounce interval has passed. Any false
// observation restarts the streak. Not safe for concurrent use.
type Stabilizer struct {
	cfg    StabilizerConfig
	now    func() time.Time
	states map[Trigger]*triggerState
}

// NewStabilizer creates a Stabilizer. now may be nil to use time.Now.
func NewStabilizer(cfg StabilizerConfig, now func() time.Time) *Stabilizer {
	def := DefaultStabilizerConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.LifecycleDelay <= 0 {
		cfg.LifecycleDelay = def.LifecycleDelay
	}
	if cfg.ClickDelay <= 0 {
		cfg.ClickDelay = def.ClickDelay
	}
	if now == nil {
		now = time.Now
	}
	s := &Stabilizer{cfg: cfg, now: now}
	s.Reset()
	return s
}

func (s *Stabilizer) debounce(t Trigger) time.Duration {
	if t == TriggerClick {
		return s.cfg.ClickDelay
	}
	return s.cfg.LifecycleDelay
}

// Observe records this frame's value for t and reports whether it fires.
func (s *Stabilizer) Observe(t Trigger, value bool) bool {
	return s.ObserveAt(t, value, s.now())
}

// ObserveAt is Observe with an explicit timestamp.
func (s *Stabilizer) ObserveAt(t Trigger, value bool, now time.Time) bool {
	st, ok := s.states[t]
	if !ok {
		return false
	}
	if !value {
		st.streak = 0
		return false
	}
	if st.streak < s.cfg.Window {
		st.streak++
	}
	if st.streak < s.cfg.Window {
		return false
	}
	if st.fired && now.Sub(st.lastFire) <= s.debounce(t) {
		return false
	}
	st.streak = 0
	st.lastFire = now
	st.fired = true
	return true
}

// Signals are the raw per-frame trigger booleans for one frame.
type Signals struct {
	Create bool
	Delete bool
	Click  bool
}

func (sig Signals) value(t Trigger) bool {
	switch t {
	case TriggerCreate:
		return sig.Create
	case TriggerDelete:
		return sig.Delete
	case TriggerClick:
		return sig.Click
	}
	return false
}

// Evaluate observes every trigger in create, delete, click order and
// returns the first one that fires. Once a trigger fires the remaining
// ones are observed as false, so two triggers never fire on one frame.
func (s *Stabilizer) Evaluate(sig Signals, now time.Time) Trigger {
	fired := NoTrigger
	for _, t := range triggerOrder {
		v := sig.value(t) && fired == NoTrigger
		if s.ObserveAt(t, v, now) {
			fired = t
		}
	}
	return fired
}

// Reset clears every history and debounce timer.
func (s *Stabilizer) Reset() {
	s.states = make(map[Trigger]*triggerState, len(triggerOrder))
	for _, t := range triggerOrder {
		s.states[t] = &triggerState{}
	}
}

// DetectSignals derives trigger booleans from the active hand. A nil or
// malformed hand yields all false.
func DetectSignals(hand *detector.HandLandmarks) Signals {
	if hand == nil || !valid(hand.Points) {
		return Signals{}
	}
	victory := IsVictory(hand.Points)
	if hand.Gesture != nil && foldLabel(hand.Gesture.Label) == LabelVictory {
		victory = true
	}
	return Signals{
		Create: IsFiveFingerPinch(hand.Points),
		Delete: victory,
		Click:  IsClick(hand.Points),
	}
}
