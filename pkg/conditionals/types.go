package conditionals

import (
	"strconv"

	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
)

// Condition gates a choice on a world flag and, optionally, on the decoded clock.
type Condition struct {
	Flag      string `json:"flag,omitempty" yaml:"flag,omitempty"`             // Flag that must be set
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`           // Required value; empty means "set and not 0"
	MinDay    *int   `json:"min_day,omitempty" yaml:"min_day,omitempty"`       // Day >= this value
	MaxDay    *int   `json:"max_day,omitempty" yaml:"max_day,omitempty"`       // Day <= this value
	ExactDay  *int   `json:"exact_day,omitempty" yaml:"exact_day,omitempty"`   // Day == this value
	HourStart *int   `json:"hour_start,omitempty" yaml:"hour_start,omitempty"` // Hour >= this value
	HourEnd   *int   `json:"hour_end,omitempty" yaml:"hour_end,omitempty"`     // Hour <= this value
}

// GameStateView provides the minimal interface needed to evaluate conditions.
// This avoids import cycles with the state package.
type GameStateView interface {
	GetFlag(name string) (string, bool)
	GetClock() ecc.Result
}

func (c Condition) hasTimeWindow() bool {
	return c.MinDay != nil || c.MaxDay != nil || c.ExactDay != nil ||
		c.HourStart != nil || c.HourEnd != nil
}

// Met reports whether a single condition holds.
func (c Condition) Met(gsView GameStateView) bool {
	if c.hasTimeWindow() {
		res := gsView.GetClock()
		if res.Status == ecc.DoubleBitDetected {
			return false
		}
		day, hour := clock.Day(res.Data), clock.Hour(res.Data)
		if c.ExactDay != nil && day != *c.ExactDay {
			return false
		}
		if c.MinDay != nil && day < *c.MinDay {
			return false
		}
		if c.MaxDay != nil && day > *c.MaxDay {
			return false
		}
		if c.HourStart != nil && hour < *c.HourStart {
			return false
		}
		if c.HourEnd != nil && hour > *c.HourEnd {
			return false
		}
	}

	if c.Flag == "" {
		return true
	}
	actual, ok := gsView.GetFlag(c.Flag)
	if !ok {
		return false
	}
	if c.Value == "" {
		return actual != "0"
	}
	return ValuesEqual(actual, c.Value)
}

// EvaluateAll reports whether every condition holds. An empty list always holds.
func EvaluateAll(conds []Condition, gsView GameStateView) bool {
	for _, c := range conds {
		if !c.Met(gsView) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two flag values. When both parse as integers they are
// compared numerically, so "02" equals "2"; otherwise the strings must match.
func ValuesEqual(actual, required string) bool {
	a, errA := strconv.Atoi(actual)
	b, errB := strconv.Atoi(required)
	if errA == nil && errB == nil {
		return a == b
	}
	return actual == required
}

// Truthy reports whether a flag counts as set for boolean checks: present and
// not "", "0" or "false".
func Truthy(value string, ok bool) bool {
	return ok && value != "" && value != "0" && value != "false"
}
