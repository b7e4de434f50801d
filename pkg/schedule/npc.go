package schedule

import (
	"github.com/jwebster45206/wired-engine/pkg/ecc"
)

// NPC is the runtime placement state of a scheduled character.
type NPC struct {
	ID       string    `json:"id"`
	Location string    `json:"current_location"`
	Manual   bool      `json:"is_manually_positioned"`
	Sanity   Sanity    `json:"sanity_level"`
	Schedule *Schedule `json:"-"`
}

// NewNPC creates an NPC in automatic mode with an unknown placement.
func NewNPC(id string, s *Schedule) *NPC {
	return &NPC{ID: id, Location: OffMap, Schedule: s}
}

// Update recomputes the placement from a decoded clock reading and returns it.
// A manually placed NPC keeps its location. A DoubleBitDetected reading never
// drives the schedule; the NPC is moved off the map instead.
func (n *NPC) Update(res ecc.Result) string {
	if n.Manual {
		return n.Location
	}
	if res.Status == ecc.DoubleBitDetected {
		n.Location = OffMap
		return n.Location
	}
	n.Location = n.Schedule.Resolve(res.Data, n.Sanity)
	return n.Location
}

// MoveTo places the NPC explicitly and suspends schedule resolution.
func (n *NPC) MoveTo(location string) {
	if location == "" {
		return
	}
	n.Location = location
	n.Manual = true
}

// Release returns the NPC to schedule-driven placement.
func (n *NPC) Release() {
	n.Manual = false
}
