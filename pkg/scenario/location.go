package scenario

import (
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

const (
	MaxConnections = 8
	MaxPOIs        = 16
)

// Location is a place in the game world with points of interest and gated exits.
type Location struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	POIs        []PointOfInterest `json:"points_of_interest,omitempty" yaml:"points_of_interest,omitempty"`
	Connections []Connection      `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// PointOfInterest is something in a location the player can look at.
type PointOfInterest struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Examine     string `json:"examine,omitempty" yaml:"examine,omitempty"` // Scene shown when examined
}

// Connection is an exit to another location.
type Connection struct {
	Target string  `json:"target" yaml:"target"`                     // Location id
	Action string  `json:"action" yaml:"action"`                     // Action applied on traversal
	Access *Access `json:"access,omitempty" yaml:"access,omitempty"` // nil means always accessible
	Denied string  `json:"denied,omitempty" yaml:"denied,omitempty"` // Scene shown when access is denied
}

// AccessKind tags the predicate carried by an Access.
type AccessKind string

const (
	AccessAlways      AccessKind = "always"
	AccessHasItem     AccessKind = "has_item"
	AccessTimeWindow  AccessKind = "time_window"
	AccessSanityBelow AccessKind = "sanity_below"
	AccessAll         AccessKind = "all"
	AccessAny         AccessKind = "any"
)

// Access is an accessibility predicate. Only the fields for its Kind are read.
type Access struct {
	Kind AccessKind `json:"kind" yaml:"kind"`

	// has_item
	Item string `json:"item,omitempty" yaml:"item,omitempty"`

	// time_window: [From, Until) within a day. From > Until spans midnight.
	From  clock.TimeOfDay `json:"from,omitempty" yaml:"from,omitempty"`
	Until clock.TimeOfDay `json:"until,omitempty" yaml:"until,omitempty"`

	// sanity_below: the NPC's tier must be strictly below Sanity.
	NPC    string          `json:"npc,omitempty" yaml:"npc,omitempty"`
	Sanity schedule.Sanity `json:"sanity,omitempty" yaml:"sanity,omitempty"`

	// all / any
	Of []Access `json:"of,omitempty" yaml:"of,omitempty"`
}

// AccessView is the world state an Access predicate may read.
// This avoids an import cycle with the state package.
type AccessView interface {
	HasItem(id string) bool
	DecodeClock() ecc.Result
	NPCSanity(id string) (schedule.Sanity, bool)
}

// Evaluate reports whether the predicate holds for the given world state.
// A nil predicate always holds. A corrupted clock denies any time window, and an
// unknown kind denies access.
func (a *Access) Evaluate(v AccessView) bool {
	if a == nil {
		return true
	}
	switch a.Kind {
	case AccessAlways, "":
		return true
	case AccessHasItem:
		return v.HasItem(a.Item)
	case AccessTimeWindow:
		res := v.DecodeClock()
		if res.Status == ecc.DoubleBitDetected {
			return false
		}
		return a.inWindow(clock.InDay(res.Data))
	case AccessSanityBelow:
		s, ok := v.NPCSanity(a.NPC)
		return ok && s < a.Sanity
	case AccessAll:
		for i := range a.Of {
			if !a.Of[i].Evaluate(v) {
				return false
			}
		}
		return true
	case AccessAny:
		for i := range a.Of {
			if a.Of[i].Evaluate(v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (a *Access) inWindow(t uint32) bool {
	from, until := a.From.Units(), a.Until.Units()
	if from <= until {
		return t >= from && t < until
	}
	return t >= from || t < until
}
