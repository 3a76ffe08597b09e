// Package bridge connects the classifier output to the particle worker and
// the worker's result buffers to the renderer.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/manipulate"
	"github.com/ayusman/mudra/internal/particle"
)

// ErrUnknownGroup is returned for operations on ids the bridge does not track.
var ErrUnknownGroup = errors.New("unknown particle group")

// Renderer draws group buffers and the manipulated object's transform.
// Buffers handed to it are snapshots it may keep.
type Renderer interface {
	SetGroupBuffers(id int, positions, colors []float32)
	RemoveGroup(id int)
	SetTransform(t manipulate.Transform)
}

// Simulator is the message interface of the particle worker.
type Simulator interface {
	Post(req particle.Request) error
	Results() <-chan particle.UpdateDone
}

// Stats counts bridge activity since creation.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	Posted       uint64 `json:"posted"`
	PostFailures uint64 `json:"post_failures"`
	Applied      uint64 `json:"applied"`
	Stale        uint64 `json:"stale"`
	Reused       uint64 `json:"reused"`
}

// GroupInfo describes one tracked group.
type GroupInfo struct {
	ID     int    `json:"id"`
	Frozen bool   `json:"frozen"`
	Ready  bool   `json:"ready"`
	Mode   string `json:"mode"`
}

type slot struct {
	id     int
	front  particle.Buffers
	back   particle.Buffers
	fresh  bool
	frozen bool
}

// Bridge owns the per-group double buffers. All methods are safe for
// concurrent use; Tick is meant to be called once per render frame.
type Bridge struct {
	mu sync.Mutex

	sim      Simulator
	renderer Renderer
	logger   *slog.Logger

	groups    map[int]*slot
	nextID    int
	state     gesture.HandState
	transform manipulate.Transform
	locked    bool
	particles int

	start time.Time
	stats Stats
}

// Config configures a Bridge.
type Config struct {
	// ParticleCount per new group; zero lets the worker choose.
	ParticleCount int
	// Start anchors the simulation clock; zero means time.Now.
	Start time.Time
}

// New creates a Bridge. renderer may be nil to discard output.
func New(sim Simulator, renderer Renderer, cfg Config, logger *slog.Logger) *Bridge {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	return &Bridge{
		sim:       sim,
		renderer:  renderer,
		logger:    logging.OrNop(logger).With("component", "bridge"),
		groups:    make(map[int]*slot),
		nextID:    1,
		state:     gesture.HandState{Type: gesture.None},
		transform: manipulate.DefaultTransform(),
		particles: cfg.ParticleCount,
		start:     cfg.Start,
	}
}

// CreateGroup asks the worker for a new group centered on the current
// transform and returns its id.
func (b *Bridge) CreateGroup() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	if err := b.sim.Post(particle.NewCreateGroup(id, b.particles, b.transform.Position)); err != nil {
		return 0, fmt.Errorf("create group %d: %w", id, err)
	}
	b.nextID++
	b.groups[id] = &slot{id: id}
	b.logger.Info("group created", "group_id", id)
	return id, nil
}

// DestroyGroup asks the worker to drop id and forgets it once the request
// is accepted. When the post fails the group stays listed so the caller can
// retry. Results still in flight for a forgotten id are discarded on arrival.
func (b *Bridge) DestroyGroup(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyLocked(id)
}

func (b *Bridge) destroyLocked(id int) error {
	if _, ok := b.groups[id]; !ok {
		return fmt.Errorf("destroy group %d: %w", id, ErrUnknownGroup)
	}
	if err := b.sim.Post(particle.NewDestroyGroup(id)); err != nil {
		return fmt.Errorf("destroy group %d: %w", id, err)
	}
	delete(b.groups, id)
	b.renderer.RemoveGroup(id)
	b.logger.Info("group destroyed", "group_id", id)
	return nil
}

// DestroyNewest removes the most recently created group, if any.
func (b *Bridge) DestroyNewest() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.idsLocked()
	if len(ids) == 0 {
		return fmt.Errorf("destroy newest: %w", ErrUnknownGroup)
	}
	return b.destroyLocked(ids[len(ids)-1])
}

// DestroyAll removes every group, returning the first error.
func (b *Bridge) DestroyAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for _, id := range b.idsLocked() {
		if err := b.destroyLocked(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetHandState records the state applied to every group on the next tick.
func (b *Bridge) SetHandState(st gesture.HandState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = st
}

// HandState returns the last recorded state.
func (b *Bridge) HandState() gesture.HandState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetTransform records the manipulated object's transform. Its position is
// the offset of every group.
func (b *Bridge) SetTransform(t manipulate.Transform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transform = t
}

// Transform returns the last recorded transform.
func (b *Bridge) Transform() manipulate.Transform {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transform
}

// SetLocked freezes group modes while a manipulation is scaling.
func (b *Bridge) SetLocked(locked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locked = locked
}

// Tick applies any results that arrived, pushes buffers and the transform
// to the renderer, and posts the next batched update. Failures are logged
// and counted, never returned, so the render loop keeps going.
func (b *Bridge) Tick(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Ticks++
	b.drainLocked()

	for _, id := range b.idsLocked() {
		s := b.groups[id]
		if !s.fresh {
			b.stats.Reused++
			continue
		}
		s.front, s.back = s.back, s.front
		s.fresh = false
		s.frozen = false
		b.renderer.SetGroupBuffers(id, s.front.Positions, s.front.Colors)
	}
	b.renderer.SetTransform(b.transform)

	if len(b.groups) == 0 {
		return
	}
	req := particle.NewUpdate(b.groupDataLocked(), now.Sub(b.start).Seconds())
	if err := b.sim.Post(req); err != nil {
		b.stats.PostFailures++
		b.freezeLocked(err)
		return
	}
	b.stats.Posted++
}

func (b *Bridge) drainLocked() {
	for {
		select {
		case res, ok := <-b.sim.Results():
			if !ok {
				return
			}
			b.applyLocked(res)
		default:
			return
		}
	}
}

func (b *Bridge) applyLocked(res particle.UpdateDone) {
	for id, buf := range res.Result {
		s, ok := b.groups[id]
		if !ok {
			b.stats.Stale++
			continue
		}
		s.back = buf
		s.fresh = true
		b.stats.Applied++
	}
}

func (b *Bridge) freezeLocked(err error) {
	for _, s := range b.groups {
		if !s.frozen {
			b.logger.Warn("group frozen, update not delivered", "group_id", s.id, "err", err)
		}
		s.frozen = true
	}
}

func (b *Bridge) groupDataLocked() []particle.GroupData {
	var target *r3.Vec
	if b.state.Target != nil {
		t := manipulate.ToWorld(*b.state.Target, b.transform.Position.Z)
		target = &t
	}

	data := make([]particle.GroupData, 0, len(b.groups))
	for _, id := range b.idsLocked() {
		data = append(data, particle.GroupData{
			ID:          id,
			Mode:        b.state.Type,
			TargetPoint: target,
			Strength:    b.state.Strength,
			Offset:      b.transform.Position,
			Locked:      b.locked,
		})
	}
	return data
}

func (b *Bridge) idsLocked() []int {
	ids := make([]int, 0, len(b.groups))
	for id := range b.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Groups describes every tracked group in id order.
func (b *Bridge) Groups() []GroupInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	infos := make([]GroupInfo, 0, len(b.groups))
	for _, id := range b.idsLocked() {
		s := b.groups[id]
		infos = append(infos, GroupInfo{
			ID:     id,
			Frozen: s.frozen,
			Ready:  s.front.Positions != nil,
			Mode:   b.state.Type.String(),
		})
	}
	return infos
}

type nopRenderer struct{}

func (nopRenderer) SetGroupBuffers(int, []float32, []float32) {}
func (nopRenderer) RemoveGroup(int)                           {}
func (nopRenderer) SetTransform(manipulate.Transform)         {}
