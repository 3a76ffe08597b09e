package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/manipulate"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// GroupFrame carries one group's interleaved xyz positions and rgb colors.
type GroupFrame struct {
	ID        int       `json:"id"`
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
}

// Frame is the full scene sent to render clients. Groups missing from a
// frame have been removed.
type Frame struct {
	Transform manipulate.Transform `json:"transform"`
	Groups    []GroupFrame         `json:"groups"`
	Timestamp int64                `json:"timestamp"`
}

// Hub is the renderer side of the bridge. It keeps the latest buffers per
// group and broadcasts the scene to every connected WebSocket client
// whenever it changed.
type Hub struct {
	logger   *slog.Logger
	interval time.Duration

	mu        sync.Mutex
	groups    map[int]GroupFrame
	transform manipulate.Transform
	dirty     bool

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]string
}

// NewHub creates a Hub broadcasting at most fps frames per second.
func NewHub(fps int, logger *slog.Logger) *Hub {
	if fps <= 0 {
		fps = 30
	}
	return &Hub{
		logger:    logging.OrNop(logger).With("component", "render_hub"),
		interval:  time.Second / time.Duration(fps),
		groups:    make(map[int]GroupFrame),
		transform: manipulate.DefaultTransform(),
		clients:   make(map[*websocket.Conn]string),
	}
}

// SetGroupBuffers stores the newest buffers for id.
func (h *Hub) SetGroupBuffers(id int, positions, colors []float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups[id] = GroupFrame{ID: id, Positions: positions, Colors: colors}
	h.dirty = true
}

// RemoveGroup drops id from the scene.
func (h *Hub) RemoveGroup(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[id]; ok {
		delete(h.groups, id)
		h.dirty = true
	}
}

// SetTransform updates the object transform.
func (h *Hub) SetTransform(t manipulate.Transform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t != h.transform {
		h.transform = t
		h.dirty = true
	}
}

// Frame returns the current scene with groups in id order.
func (h *Hub) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameLocked()
}

func (h *Hub) frameLocked() Frame {
	f := Frame{
		Transform: h.transform,
		Groups:    make([]GroupFrame, 0, len(h.groups)),
		Timestamp: time.Now().UnixMilli(),
	}
	for _, g := range h.groups {
		f.Groups = append(f.Groups, g)
	}
	sort.Slice(f.Groups, func(i, j int) bool { return f.Groups[i].ID < f.Groups[j].ID })
	return f
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	h.clientsMu.Lock()
	h.clients[conn] = id
	h.clientsMu.Unlock()
	h.logger.Info("render client connected", "client_id", id)

	// New clients get the whole scene on the next broadcast.
	h.mu.Lock()
	h.dirty = true
	h.mu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		h.logger.Info("render client disconnected", "client_id", id)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Run broadcasts changed frames until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	if h.Clients() == 0 {
		return
	}

	h.mu.Lock()
	if !h.dirty {
		h.mu.Unlock()
		return
	}
	h.dirty = false
	frame := h.frameLocked()
	h.mu.Unlock()

	msg, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode frame", "err", err)
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for conn, id := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Closing unblocks the reader in ServeHTTP, which unregisters.
			h.logger.Debug("write frame", "client_id", id, "err", err)
			conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}
