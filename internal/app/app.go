// Package app runs the capture, classification and simulation loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/bridge"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/manipulate"
)

// DefaultRenderFPS is the bridge tick rate when none is configured.
const DefaultRenderFPS = 60

// Config holds the tunables of the main loop.
type Config struct {
	RenderFPS    int
	Gate         capture.GateConfig
	Thresholds   gesture.Thresholds
	Stabilizer   gesture.StabilizerConfig
	Manipulation manipulate.Config
}

// Snapshot is a read-only view of the latest frame for status endpoints.
type Snapshot struct {
	Enabled      bool                 `json:"enabled"`
	Hands        int                  `json:"hands"`
	State        string               `json:"state"`
	Strength     float64              `json:"strength"`
	ActiveHand   int                  `json:"active_hand"`
	LastTrigger  string               `json:"last_trigger"`
	Manipulation string               `json:"manipulation"`
	Transform    manipulate.Transform `json:"transform"`
	DisplayScale float64              `json:"display_scale"`
	Groups       []bridge.GroupInfo   `json:"groups"`
	Stats        bridge.Stats         `json:"stats"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Result is what one detection cycle decided.
type Result struct {
	State      gesture.HandState
	ActiveHand int
	Trigger    gesture.Trigger
	Event      *manipulate.Event
}

// App wires camera, detector, classifier, stabilizer, tracker and bridge.
type App struct {
	cfg    Config
	logger *slog.Logger

	camera   capture.Camera
	gate     *capture.MotionGate
	bridge   *bridge.Bridge
	classify *gesture.Classifier

	// Owned by the loop goroutine.
	stabilizer *gesture.Stabilizer
	tracker    *manipulate.Tracker
	scaling    bool

	mu       sync.RWMutex
	detector detector.Detector
	enabled  bool
	last     Snapshot
	running  bool
}

// New creates an App. The camera and detector are owned by the App from
// here on and closed when Run returns.
func New(cfg Config, camera capture.Camera, det detector.Detector, br *bridge.Bridge, logger *slog.Logger) *App {
	if cfg.RenderFPS <= 0 {
		cfg.RenderFPS = DefaultRenderFPS
	}
	return &App{
		cfg:        cfg,
		logger:     logging.OrNop(logger).With("component", "app"),
		camera:     camera,
		gate:       capture.NewMotionGate(cfg.Gate),
		bridge:     br,
		classify:   gesture.NewClassifier(cfg.Thresholds),
		stabilizer: gesture.NewStabilizer(cfg.Stabilizer, nil),
		tracker:    manipulate.NewTracker(cfg.Manipulation),
		detector:   det,
		enabled:    true,
		last:       Snapshot{State: gesture.None.String(), ActiveHand: -1, LastTrigger: gesture.NoTrigger.String()},
	}
}

// SetEnabled pauses or resumes detection. Rendering continues either way.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether detection is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector swaps the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the current hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Bridge returns the simulation bridge.
func (a *App) Bridge() *bridge.Bridge { return a.bridge }

// Snapshot returns the latest frame summary with live bridge data.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	s := a.last
	s.Enabled = a.enabled
	a.mu.RUnlock()

	s.Groups = a.bridge.Groups()
	s.Stats = a.bridge.Stats()
	return s
}

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("app already running")

// Run opens the camera and drives detection and rendering until ctx ends.
// The camera and detector are closed on return.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	if err := a.camera.Open(); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.shutdown()

	a.logger.Info("pipeline started", "render_fps", a.cfg.RenderFPS)
	return a.loop(ctx)
}

func (a *App) shutdown() {
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("close camera", "err", err)
	}
	a.gate.Close()
	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Warn("close detector", "err", err)
		}
	}
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	a.logger.Info("pipeline stopped")
}

// ProcessHands runs one detection cycle on already detected hands:
// classification, trigger stabilization, manipulation and bridge input.
// It must be called from a single goroutine.
func (a *App) ProcessHands(hands []detector.HandLandmarks, now time.Time) Result {
	state, active := a.classify.Resolve(hands)

	var activeHand *detector.HandLandmarks
	if active >= 0 {
		activeHand = &hands[active]
	}

	trigger := a.stabilizer.Evaluate(gesture.DetectSignals(activeHand), now)
	a.fire(trigger)

	ev := a.manipulate(hands, activeHand, now)
	if ev != nil {
		a.scaling = ev.Type == manipulate.Scale
	} else if !a.tracker.Active() {
		a.scaling = false
	}

	transform := a.tracker.Transform()
	a.bridge.SetLocked(a.scaling)
	a.bridge.SetTransform(transform)
	a.bridge.SetHandState(state)

	a.mu.Lock()
	a.last.Hands = len(hands)
	a.last.State = state.Type.String()
	a.last.Strength = state.Strength
	a.last.ActiveHand = active
	if trigger != gesture.NoTrigger {
		a.last.LastTrigger = trigger.String()
	}
	a.last.Manipulation = "idle"
	if ev != nil {
		a.last.Manipulation = ev.Type.String()
	}
	a.last.Transform = transform
	a.last.DisplayScale = a.tracker.DisplayScale()
	a.last.UpdatedAt = now
	a.mu.Unlock()

	return Result{State: state, ActiveHand: active, Trigger: trigger, Event: ev}
}

func (a *App) fire(t gesture.Trigger) {
	switch t {
	case gesture.TriggerCreate:
		id, err := a.bridge.CreateGroup()
		if err != nil {
			a.logger.Warn("create trigger failed", "err", err)
			return
		}
		a.logger.Info("trigger", "trigger", t.String(), "group_id", id)
	case gesture.TriggerDelete:
		if err := a.bridge.DestroyNewest(); err != nil {
			a.logger.Debug("delete trigger ignored", "err", err)
			return
		}
		a.logger.Info("trigger", "trigger", t.String())
	case gesture.TriggerClick:
		on := a.tracker.ToggleRotation()
		a.logger.Info("trigger", "trigger", t.String(), "rotation", on)
	}
}

// manipulate feeds the tracker: palm centers when two hands are visible,
// otherwise the active hand's thumb and index tips.
func (a *App) manipulate(hands []detector.HandLandmarks, active *detector.HandLandmarks, now time.Time) *manipulate.Event {
	var centers []r3.Vec
	for i := range hands {
		if len(centers) == gesture.MaxHands {
			break
		}
		if c, ok := gesture.PalmCenter(hands[i].Points); ok {
			centers = append(centers, c)
		}
	}

	if len(centers) == 2 {
		a.tracker.SetMode(manipulate.TwoHand)
		return a.tracker.Update(&centers[0], &centers[1], now)
	}

	a.tracker.SetMode(manipulate.SingleHand)
	if active == nil || !active.Valid() {
		return a.tracker.Update(nil, nil, now)
	}
	thumb := active.Points[detector.ThumbTip].Vec()
	index := active.Points[detector.IndexTip].Vec()
	return a.tracker.Update(&thumb, &index, now)
}
