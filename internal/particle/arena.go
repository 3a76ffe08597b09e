package particle

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrGroupExists is returned when creating a group under a live id.
var ErrGroupExists = errors.New("particle group already exists")

// Arena holds every live group by integer id. It is not safe for
// concurrent use; a Worker serializes access to it.
type Arena struct {
	params Params
	groups map[int]*Group
}

// NewArena creates an empty Arena.
func NewArena(p Params) *Arena {
	return &Arena{
		params: p.normalized(),
		groups: make(map[int]*Group),
	}
}

// Params returns the normalized parameters in use.
func (a *Arena) Params() Params { return a.params }

// Create lays out a new group. n <= 0 uses the configured particle count.
func (a *Arena) Create(id, n int, offset r3.Vec) (*Group, error) {
	if _, ok := a.groups[id]; ok {
		return nil, fmt.Errorf("create group %d: %w", id, ErrGroupExists)
	}
	if n <= 0 {
		n = a.params.ParticleCount
	}
	g := newGroup(id, n, offset, a.params)
	a.groups[id] = g
	return g, nil
}

// Destroy removes a group. Unknown ids are ignored and report false.
func (a *Arena) Destroy(id int) bool {
	if _, ok := a.groups[id]; !ok {
		return false
	}
	delete(a.groups, id)
	return true
}

// Group returns the live group with id, or nil.
func (a *Arena) Group(id int) *Group { return a.groups[id] }

// Len returns the number of live groups.
func (a *Arena) Len() int { return len(a.groups) }

// IDs returns the live group ids in ascending order.
func (a *Arena) IDs() []int {
	ids := make([]int, 0, len(a.groups))
	for id := range a.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Update steps every group named in req and returns its buffers. Entries
// naming unknown groups are skipped.
func (a *Arena) Update(req Update) UpdateDone {
	done := UpdateDone{Result: make(map[int]Buffers, len(req.GroupsData)), Time: req.Time}
	for _, in := range req.GroupsData {
		g, ok := a.groups[in.ID]
		if !ok {
			continue
		}
		if finiteVec(in.Offset) {
			g.Offset = in.Offset
		}
		var target *r3.Vec
		if in.TargetPoint != nil && finiteVec(*in.TargetPoint) {
			local := r3.Sub(*in.TargetPoint, g.Offset)
			target = &local
		}
		g.step(in, target, req.Time, a.params)
		done.Result[in.ID] = g.buffers()
	}
	return done
}
