package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/manipulate"
	"github.com/ayusman/mudra/internal/particle"
)

type fakeSim struct {
	mu      sync.Mutex
	posted  []particle.Request
	err     error
	results chan particle.UpdateDone
}

func newFakeSim() *fakeSim {
	return &fakeSim{results: make(chan particle.UpdateDone, 8)}
}

func (f *fakeSim) Post(req particle.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, req)
	return nil
}

func (f *fakeSim) Results() <-chan particle.UpdateDone { return f.results }

func (f *fakeSim) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSim) last() particle.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posted[len(f.posted)-1]
}

type fakeRenderer struct {
	mu        sync.Mutex
	buffers   map[int][]float32
	sets      int
	removed   []int
	transform manipulate.Transform
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{buffers: make(map[int][]float32)}
}

func (r *fakeRenderer) SetGroupBuffers(id int, positions, colors []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[id] = positions
	r.sets++
}

func (r *fakeRenderer) RemoveGroup(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, id)
	r.removed = append(r.removed, id)
}

func (r *fakeRenderer) SetTransform(t manipulate.Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = t
}

func buffers(v float32) particle.Buffers {
	return particle.Buffers{Positions: []float32{v, v, v}, Colors: []float32{1, 1, 1}}
}

func TestBridge_CreateGroup(t *testing.T) {
	sim := newFakeSim()
	b := New(sim, nil, Config{ParticleCount: 64}, nil)
	b.SetTransform(manipulate.Transform{Position: r3.Vec{X: 1, Z: 4}, Scale: 1})

	id, err := b.CreateGroup()
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}

	req := sim.last()
	want := &particle.CreateGroup{ID: 1, ParticleCount: 64, Offset: r3.Vec{X: 1, Z: 4}}
	if diff := cmp.Diff(want, req.CreateGroup); diff != "" {
		t.Errorf("create request mismatch (-want +got):\n%s", diff)
	}

	id2, _ := b.CreateGroup()
	if id2 != 2 {
		t.Errorf("second id = %d, want 2", id2)
	}
}

func TestBridge_CreateGroupPostFailure(t *testing.T) {
	sim := newFakeSim()
	sim.setErr(particle.ErrStopped)
	b := New(sim, nil, Config{}, nil)

	if _, err := b.CreateGroup(); !errors.Is(err, particle.ErrStopped) {
		t.Fatalf("CreateGroup() error = %v, want ErrStopped", err)
	}
	if len(b.Groups()) != 0 {
		t.Error("failed create must not register a group")
	}
}

func TestBridge_TickPostsBatchedUpdate(t *testing.T) {
	sim := newFakeSim()
	start := time.Unix(500, 0)
	b := New(sim, nil, Config{Start: start}, nil)
	b.CreateGroup()
	b.CreateGroup()

	target := r3.Vec{X: 0.25, Y: 0.5}
	b.SetHandState(gesture.HandState{Type: gesture.Attract, Strength: 0.8, Target: &target})
	b.SetLocked(true)
	b.Tick(start.Add(1500 * time.Millisecond))

	req := sim.last()
	if req.Type != particle.TypeUpdate || req.Update == nil {
		t.Fatalf("last request = %+v, want update", req)
	}
	if req.Update.Time != 1.5 {
		t.Errorf("Time = %f, want 1.5", req.Update.Time)
	}
	if len(req.Update.GroupsData) != 2 {
		t.Fatalf("GroupsData has %d entries, want 2", len(req.Update.GroupsData))
	}
	gd := req.Update.GroupsData[0]
	if gd.ID != 1 || gd.Mode != gesture.Attract || gd.Strength != 0.8 || !gd.Locked {
		t.Errorf("group data = %+v", gd)
	}
	wantTarget := r3.Vec{X: 4, Y: 0, Z: manipulate.DefaultZ}
	if gd.TargetPoint == nil || *gd.TargetPoint != wantTarget {
		t.Errorf("TargetPoint = %v, want %+v", gd.TargetPoint, wantTarget)
	}
}

func TestBridge_NoGroupsNoUpdate(t *testing.T) {
	sim := newFakeSim()
	b := New(sim, nil, Config{}, nil)
	b.Tick(time.Now())
	if len(sim.posted) != 0 {
		t.Errorf("posted %d requests with no groups, want 0", len(sim.posted))
	}
}

func TestBridge_DoubleBufferAndReuse(t *testing.T) {
	sim := newFakeSim()
	r := newFakeRenderer()
	b := New(sim, r, Config{}, nil)
	id, _ := b.CreateGroup()

	b.Tick(time.Now())
	if r.sets != 0 {
		t.Fatalf("renderer received buffers before any result")
	}

	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(1)}}
	b.Tick(time.Now())
	if r.sets != 1 || r.buffers[id][0] != 1 {
		t.Fatalf("renderer buffers = %v after first result", r.buffers[id])
	}

	// No new result: the renderer keeps the previous snapshot.
	b.Tick(time.Now())
	if r.sets != 1 {
		t.Errorf("renderer updated without a new result")
	}
	if got := b.Stats().Reused; got < 2 {
		t.Errorf("Reused = %d, want >= 2", got)
	}

	// Two results between ticks: only the newest lands.
	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(2)}}
	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(3)}}
	b.Tick(time.Now())
	if r.buffers[id][0] != 3 {
		t.Errorf("renderer buffer = %v, want newest result", r.buffers[id])
	}
	if !b.Groups()[0].Ready {
		t.Error("group should report ready after a result")
	}
}

func TestBridge_StaleResultDiscarded(t *testing.T) {
	sim := newFakeSim()
	r := newFakeRenderer()
	b := New(sim, r, Config{}, nil)
	id, _ := b.CreateGroup()
	b.Tick(time.Now())

	if err := b.DestroyGroup(id); err != nil {
		t.Fatalf("DestroyGroup() error = %v", err)
	}
	if req := sim.last(); req.Type != particle.TypeDestroyGroup || req.DestroyGroup.ID != id {
		t.Errorf("last request = %+v, want destroy of %d", req, id)
	}

	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(9)}}
	b.Tick(time.Now())

	if _, ok := r.buffers[id]; ok {
		t.Error("stale result reached the renderer")
	}
	if got := b.Stats().Stale; got != 1 {
		t.Errorf("Stale = %d, want 1", got)
	}
	if diff := cmp.Diff([]int{id}, r.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_PostFailureFreezes(t *testing.T) {
	sim := newFakeSim()
	r := newFakeRenderer()
	b := New(sim, r, Config{}, nil)
	id, _ := b.CreateGroup()
	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(1)}}
	b.Tick(time.Now())

	sim.setErr(particle.ErrBusy)
	b.Tick(time.Now())
	b.Tick(time.Now())

	st := b.Stats()
	if st.PostFailures != 2 {
		t.Errorf("PostFailures = %d, want 2", st.PostFailures)
	}
	groups := b.Groups()
	if len(groups) != 1 || !groups[0].Frozen {
		t.Fatalf("groups = %+v, want one frozen group", groups)
	}
	if r.buffers[id][0] != 1 {
		t.Error("frozen group should keep its last buffers")
	}

	sim.setErr(nil)
	sim.results <- particle.UpdateDone{Result: map[int]particle.Buffers{id: buffers(2)}}
	b.Tick(time.Now())
	if b.Groups()[0].Frozen {
		t.Error("group should thaw once results flow again")
	}
}

func TestBridge_DestroyErrors(t *testing.T) {
	b := New(newFakeSim(), nil, Config{}, nil)

	if err := b.DestroyGroup(42); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("DestroyGroup(42) error = %v, want ErrUnknownGroup", err)
	}
	if err := b.DestroyNewest(); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("DestroyNewest() on empty bridge error = %v, want ErrUnknownGroup", err)
	}

	b.CreateGroup()
	b.CreateGroup()
	if err := b.DestroyNewest(); err != nil {
		t.Fatalf("DestroyNewest() error = %v", err)
	}
	if groups := b.Groups(); len(groups) != 1 || groups[0].ID != 1 {
		t.Errorf("groups after DestroyNewest = %+v, want only id 1", groups)
	}
	if err := b.DestroyAll(); err != nil {
		t.Fatalf("DestroyAll() error = %v", err)
	}
	if len(b.Groups()) != 0 {
		t.Error("DestroyAll left groups behind")
	}
}

func TestBridge_DestroyPostFailureKeepsGroup(t *testing.T) {
	sim := newFakeSim()
	r := newFakeRenderer()
	b := New(sim, r, Config{}, nil)
	id, err := b.CreateGroup()
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	sim.setErr(particle.ErrBusy)
	if err := b.DestroyGroup(id); !errors.Is(err, particle.ErrBusy) {
		t.Fatalf("DestroyGroup() error = %v, want ErrBusy", err)
	}
	if err := b.DestroyAll(); !errors.Is(err, particle.ErrBusy) {
		t.Fatalf("DestroyAll() error = %v, want ErrBusy", err)
	}
	if groups := b.Groups(); len(groups) != 1 || groups[0].ID != id {
		t.Fatalf("groups after failed destroy = %+v, want only %d", groups, id)
	}
	if len(r.removed) != 0 {
		t.Errorf("renderer dropped %v before the worker was told", r.removed)
	}

	sim.setErr(nil)
	if err := b.DestroyGroup(id); err != nil {
		t.Fatalf("retried DestroyGroup() error = %v", err)
	}
	if req := sim.last(); req.Type != particle.TypeDestroyGroup || req.DestroyGroup.ID != id {
		t.Errorf("last request = %+v, want destroy of %d", req, id)
	}
	if len(b.Groups()) != 0 {
		t.Errorf("groups after retry = %+v, want none", b.Groups())
	}
	if diff := cmp.Diff([]int{id}, r.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_TransformForwarded(t *testing.T) {
	r := newFakeRenderer()
	b := New(newFakeSim(), r, Config{}, nil)
	want := manipulate.Transform{Position: r3.Vec{X: 2, Y: -1, Z: 3}, Scale: 1.5}
	b.SetTransform(want)
	b.Tick(time.Now())

	if diff := cmp.Diff(want, r.transform); diff != "" {
		t.Errorf("transform mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_WithWorker(t *testing.T) {
	w := particle.NewWorker(particle.DefaultParams(), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	r := newFakeRenderer()
	b := New(w, r, Config{ParticleCount: 50}, nil)
	id, err := b.CreateGroup()
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	b.SetHandState(gesture.HandState{Type: gesture.Heart, Strength: 0.9})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.Tick(time.Now())
		r.mu.Lock()
		n := len(r.buffers[id])
		r.mu.Unlock()
		if n == 150 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no buffers reached the renderer from the worker")
}
