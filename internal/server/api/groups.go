package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/bridge"
)

// GroupStore is the subset of the bridge the group endpoints need.
type GroupStore interface {
	CreateGroup() (int, error)
	DestroyGroup(id int) error
	DestroyAll() error
	Groups() []bridge.GroupInfo
}

// GroupHandler handles HTTP requests for particle groups.
type GroupHandler struct {
	groups GroupStore
}

// NewGroupHandler creates a GroupHandler backed by g.
func NewGroupHandler(g GroupStore) *GroupHandler {
	return &GroupHandler{groups: g}
}

// ServeHTTP routes /api/groups and /api/groups/{id}.
func (h *GroupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/groups")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		case http.MethodDelete:
			h.clear(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, err := strconv.Atoi(path)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type groupResponse struct {
	ID     int    `json:"id"`
	Mode   string `json:"mode"`
	Ready  bool   `json:"ready"`
	Frozen bool   `json:"frozen"`
}

type listGroupsResponse struct {
	Groups []groupResponse `json:"groups"`
	Total  int             `json:"total"`
}

func toGroupResponse(g bridge.GroupInfo) groupResponse {
	return groupResponse{ID: g.ID, Mode: g.Mode, Ready: g.Ready, Frozen: g.Frozen}
}

// list handles GET /api/groups.
func (h *GroupHandler) list(w http.ResponseWriter, r *http.Request) {
	groups := h.groups.Groups()
	resp := listGroupsResponse{
		Groups: make([]groupResponse, len(groups)),
		Total:  len(groups),
	}
	for i, g := range groups {
		resp.Groups[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

// create handles POST /api/groups. The group starts at the current
// transform position, exactly like the pinch trigger.
func (h *GroupHandler) create(w http.ResponseWriter, r *http.Request) {
	id, err := h.groups.CreateGroup()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Simulation unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{ID: id})
}

// clear handles DELETE /api/groups.
func (h *GroupHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.DestroyAll(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Simulation unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// get handles GET /api/groups/{id}.
func (h *GroupHandler) get(w http.ResponseWriter, r *http.Request, id int) {
	for _, g := range h.groups.Groups() {
		if g.ID == id {
			writeJSON(w, http.StatusOK, toGroupResponse(g))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Group not found")
}

// delete handles DELETE /api/groups/{id}.
func (h *GroupHandler) delete(w http.ResponseWriter, r *http.Request, id int) {
	err := h.groups.DestroyGroup(id)
	switch {
	case errors.Is(err, bridge.ErrUnknownGroup):
		writeError(w, http.StatusNotFound, "Group not found")
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "Simulation unavailable")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
