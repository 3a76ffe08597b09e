package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing constants.
const (
	// GaussianBlurSize is the blur kernel applied before differencing.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts as motion.
	DiffThreshold = 25
)

// GateConfig tunes the motion gate.
type GateConfig struct {
	// Threshold is the percentage of pixels that must change.
	Threshold float64 `env:"MOTION_THRESHOLD" envDefault:"1.0"`
	// ActiveInterval is the detection cadence while the scene moves.
	ActiveInterval time.Duration `env:"DETECT_INTERVAL" envDefault:"100ms"`
	// IdleInterval is the detection cadence once the scene is still.
	IdleInterval time.Duration `env:"IDLE_DETECT_INTERVAL" envDefault:"250ms"`
	// IdleTimeout is how long without motion before going idle.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"2s"`
}

// DefaultGateConfig returns 1% change, 100ms active, 250ms idle, 2s timeout.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Threshold:      1.0,
		ActiveInterval: 100 * time.Millisecond,
		IdleInterval:   250 * time.Millisecond,
		IdleTimeout:    2 * time.Second,
	}
}

// MotionGate decides how often detection should run. It differences
// consecutive blurred grayscale frames and stays active for IdleTimeout
// after the last motion. Safe for concurrent use.
type MotionGate struct {
	cfg GateConfig

	mu          sync.Mutex
	prevGray    gocv.Mat
	initialized bool
	active      bool
	lastMotion  time.Time
}

// NewMotionGate creates a gate that starts active so the first frames are
// always examined.
func NewMotionGate(cfg GateConfig) *MotionGate {
	def := DefaultGateConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = def.ActiveInterval
	}
	if cfg.IdleInterval < cfg.ActiveInterval {
		cfg.IdleInterval = max(def.IdleInterval, cfg.ActiveInterval)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	return &MotionGate{
		cfg:      cfg,
		prevGray: gocv.NewMat(),
		active:   true,
	}
}

// Observe examines frame and reports whether the gate is active along with
// the percentage of changed pixels.
func (m *MotionGate) Observe(frame *gocv.Mat, now time.Time) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	change := m.diffLocked(frame)
	return m.updateLocked(change > m.cfg.Threshold, now), change
}

// Mark records a motion decision made elsewhere, e.g. a hand being seen.
func (m *MotionGate) Mark(motion bool, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(motion, now)
}

func (m *MotionGate) updateLocked(motion bool, now time.Time) bool {
	if m.lastMotion.IsZero() {
		m.lastMotion = now
	}
	if motion {
		m.lastMotion = now
		m.active = true
	} else if m.active && now.Sub(m.lastMotion) > m.cfg.IdleTimeout {
		m.active = false
	}
	return m.active
}

// Active reports the current state.
func (m *MotionGate) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Interval is the detection cadence for the current state.
func (m *MotionGate) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return m.cfg.ActiveInterval
	}
	return m.cfg.IdleInterval
}

// diffLocked returns the changed-pixel percentage against the previous
// frame. The first frame only sets the baseline.
func (m *MotionGate) diffLocked(frame *gocv.Mat) float64 {
	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100

	blurred.CopyTo(&m.prevGray)
	return changed
}

// Reset drops the baseline frame and returns to the active state.
func (m *MotionGate) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.active = true
	m.lastMotion = time.Time{}
}

// Close releases the baseline frame.
func (m *MotionGate) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *MotionGate) releaseLocked() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}
