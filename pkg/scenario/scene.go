package scenario

import (
	"github.com/jwebster45206/wired-engine/pkg/conditionals"
)

// MaxChoicesPerScene bounds the choices a story unit may offer.
const MaxChoicesPerScene = 8

// StoryUnit is one addressable block of narrative content bound to a location.
type StoryUnit struct {
	ID       string   `json:"id" yaml:"id"`
	Location string   `json:"location" yaml:"location"` // Player location while this unit is shown
	Lines    []string `json:"lines,omitempty" yaml:"lines,omitempty"`
	Choices  []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Choice is a player option that applies an action when picked.
type Choice struct {
	Text       string                   `json:"text" yaml:"text"`
	Action     string                   `json:"action" yaml:"action"`
	Conditions []conditionals.Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"` // All must hold
}

// Selectable reports whether every condition on the choice holds.
func (c Choice) Selectable(gsView conditionals.GameStateView) bool {
	return conditionals.EvaluateAll(c.Conditions, gsView)
}

// SelectableChoices returns the choices of the unit that may currently be picked,
// keeping their original order.
func (u *StoryUnit) SelectableChoices(gsView conditionals.GameStateView) []Choice {
	var out []Choice
	for _, c := range u.Choices {
		if c.Selectable(gsView) {
			out = append(out, c)
		}
	}
	return out
}
