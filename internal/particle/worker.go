package particle

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/logging"
)

var (
	// ErrStopped is returned when posting to a worker that has stopped.
	ErrStopped = errors.New("particle worker stopped")
	// ErrBusy is returned when the worker inbox is full.
	ErrBusy = errors.New("particle worker busy")
)

// DefaultInboxSize is the request queue depth of a Worker.
const DefaultInboxSize = 16

// Worker owns an Arena on a dedicated goroutine. Callers talk to it only
// through Post and Results; nothing mutable is shared.
type Worker struct {
	id     uuid.UUID
	arena  *Arena
	in     chan Request
	out    chan UpdateDone
	done   chan struct{}
	stop   sync.Once
	logger *slog.Logger
}

// NewWorker creates a Worker. Call Run to start processing.
func NewWorker(p Params, inbox int, logger *slog.Logger) *Worker {
	if inbox <= 0 {
		inbox = DefaultInboxSize
	}
	id := uuid.New()
	return &Worker{
		id:     id,
		arena:  NewArena(p),
		in:     make(chan Request, inbox),
		out:    make(chan UpdateDone, 1),
		done:   make(chan struct{}),
		logger: logging.OrNop(logger).With("component", "particle_worker", "worker_id", id.String()),
	}
}

// ID identifies this worker instance in logs.
func (w *Worker) ID() uuid.UUID { return w.id }

// Post queues a request without blocking.
func (w *Worker) Post(req Request) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}
	select {
	case w.in <- req:
		return nil
	default:
		return ErrBusy
	}
}

// Results delivers updateDone messages. Only the newest undelivered
// result is kept; older ones are dropped since each is a full snapshot.
func (w *Worker) Results() <-chan UpdateDone { return w.out }

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Stop terminates Run. Safe to call more than once.
func (w *Worker) Stop() {
	w.stop.Do(func() { close(w.done) })
}

// Run processes requests until ctx is cancelled or Stop is called.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case req := <-w.in:
			w.handle(req)
		}
	}
}

func (w *Worker) handle(req Request) {
	switch req.Type {
	case TypeCreateGroup:
		if req.CreateGroup == nil {
			break
		}
		c := req.CreateGroup
		g, err := w.arena.Create(c.ID, c.ParticleCount, c.Offset)
		if err != nil {
			w.logger.Warn("create group failed", "group_id", c.ID, "err", err)
			return
		}
		w.logger.Debug("group created", "group_id", c.ID, "particles", g.Len())
		return

	case TypeDestroyGroup:
		if req.DestroyGroup == nil {
			break
		}
		if w.arena.Destroy(req.DestroyGroup.ID) {
			w.logger.Debug("group destroyed", "group_id", req.DestroyGroup.ID)
		}
		return

	case TypeUpdate:
		if req.Update == nil {
			break
		}
		w.publish(w.arena.Update(*req.Update))
		return
	}
	w.logger.Warn("malformed request", "type", req.Type)
}

func (w *Worker) publish(res UpdateDone) {
	for {
		select {
		case w.out <- res:
			return
		default:
		}
		// Replace the stale snapshot nobody has read yet.
		select {
		case <-w.out:
		default:
		}
	}
}
