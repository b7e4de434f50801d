package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Action types with special handling. Any other type applies only the generic
// payload effects.
const (
	ActionStoryChange            = "story_change"
	ActionAcquireItem            = "acquire_item"
	ActionConditionalStoryChange = "conditional_story_change"
	ActionConditionalByFlag      = "conditional_action_by_flag"
)

// Action is a named, read-only effect applied to world state.
type Action struct {
	ID      string  `json:"id" yaml:"id"`
	Type    string  `json:"type" yaml:"type"`
	Payload Payload `json:"payload" yaml:"payload"`
}

// Payload holds the effects of an action. Effects are applied in field order.
type Payload struct {
	Scene       string      `json:"scene,omitempty" yaml:"scene,omitempty"`               // Next story unit
	NewLocation string      `json:"new_location,omitempty" yaml:"new_location,omitempty"` // Player location
	ItemID      string      `json:"item_id,omitempty" yaml:"item_id,omitempty"`           // acquire_item target
	Commands    []string    `json:"commands,omitempty" yaml:"commands,omitempty"`         // Commands to unlock
	Flags       []FlagWrite `json:"flags,omitempty" yaml:"flags,omitempty"`               // Flag writes
	TimeCost    int         `json:"time_cost,omitempty" yaml:"time_cost,omitempty"`       // Minutes to advance the clock
	NPCMoves    []NPCMove   `json:"npc_moves,omitempty" yaml:"npc_moves,omitempty"`       // Scripted NPC placement

	// conditional_story_change
	FlagName     string `json:"flag_name,omitempty" yaml:"flag_name,omitempty"`
	StoryIfTrue  string `json:"story_if_true,omitempty" yaml:"story_if_true,omitempty"`
	StoryIfFalse string `json:"story_if_false,omitempty" yaml:"story_if_false,omitempty"`

	// conditional_action_by_flag (also uses FlagName)
	ValueActions  map[string]string `json:"value_actions,omitempty" yaml:"value_actions,omitempty"` // Flag value -> action id
	DefaultAction string            `json:"default_action,omitempty" yaml:"default_action,omitempty"`
}

// FlagWrite sets one world flag.
type FlagWrite struct {
	Name  string    `json:"name" yaml:"name"`
	Value FlagValue `json:"value" yaml:"value"`
}

// NPCMove places an NPC explicitly, or returns it to its schedule when Release is set.
type NPCMove struct {
	NPC      string `json:"npc" yaml:"npc"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Release  bool   `json:"release,omitempty" yaml:"release,omitempty"`
}

// FlagValue is a flag value in its stored string form. It decodes from a string,
// a number or a boolean; numbers drop trailing zeros.
type FlagValue string

func (v FlagValue) String() string { return string(v) }

func formatNumber(f float64) FlagValue {
	return FlagValue(strconv.FormatFloat(f, 'f', -1, 64))
}

// UnmarshalJSON accepts a JSON string, number or boolean.
func (v *FlagValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = FlagValue(x)
	case float64:
		*v = formatNumber(x)
	case bool:
		*v = FlagValue(strconv.FormatBool(x))
	default:
		return fmt.Errorf("flag value must be a string, number or boolean: %s", string(data))
	}
	return nil
}

// UnmarshalYAML accepts a YAML scalar of any type.
func (v *FlagValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("flag value must be a scalar (line %d)", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			*v = FlagValue(node.Value)
			return nil
		}
		*v = formatNumber(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = FlagValue(strconv.FormatBool(b))
	default:
		*v = FlagValue(node.Value)
	}
	return nil
}

// Item is an acquirable object.
type Item struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	RequiredCredit int    `json:"required_credit,omitempty" yaml:"required_credit,omitempty"`
}
