package particle

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/gesture"
)

// Message types exchanged with a Worker.
const (
	TypeCreateGroup  = "createGroup"
	TypeUpdate       = "update"
	TypeUpdateDone   = "updateDone"
	TypeDestroyGroup = "destroyGroup"
)

// CreateGroup asks for a new group. A zero ParticleCount uses the default.
type CreateGroup struct {
	ID            int    `json:"id"`
	ParticleCount int    `json:"particleCount"`
	Offset        r3.Vec `json:"offset"`
}

// DestroyGroup removes a group.
type DestroyGroup struct {
	ID int `json:"id"`
}

// GroupData is the per-group input of one update. TargetPoint is in
// simulation space.
type GroupData struct {
	ID          int               `json:"id"`
	Mode        gesture.StateType `json:"mode"`
	TargetPoint *r3.Vec           `json:"targetPoint,omitempty"`
	Strength    float64           `json:"strength"`
	Offset      r3.Vec            `json:"offset"`
	Locked      bool              `json:"locked,omitempty"`
}

// Update advances every listed group. Time is in seconds and only its
// differences matter.
type Update struct {
	GroupsData []GroupData `json:"groupsData"`
	Time       float64     `json:"time"`
}

// Buffers are interleaved xyz positions and rgb colors, 3 floats per particle.
type Buffers struct {
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
}

// UpdateDone carries the buffers of every group an Update touched.
type UpdateDone struct {
	Result map[int]Buffers `json:"result"`
	Time   float64         `json:"time"`
}

// Request is the envelope posted to a Worker; exactly one payload is set.
type Request struct {
	Type         string        `json:"type"`
	CreateGroup  *CreateGroup  `json:"createGroup,omitempty"`
	Update       *Update       `json:"update,omitempty"`
	DestroyGroup *DestroyGroup `json:"destroyGroup,omitempty"`
}

// NewCreateGroup wraps a CreateGroup request.
func NewCreateGroup(id, count int, offset r3.Vec) Request {
	return Request{Type: TypeCreateGroup, CreateGroup: &CreateGroup{ID: id, ParticleCount: count, Offset: offset}}
}

// NewUpdate wraps an Update request.
func NewUpdate(groups []GroupData, time float64) Request {
	return Request{Type: TypeUpdate, Update: &Update{GroupsData: groups, Time: time}}
}

// NewDestroyGroup wraps a DestroyGroup request.
func NewDestroyGroup(id int) Request {
	return Request{Type: TypeDestroyGroup, DestroyGroup: &DestroyGroup{ID: id}}
}
