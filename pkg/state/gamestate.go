package state

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

const (
	MaxInventoryItems = 32
	MaxCommands       = 32

	FlagCreditLevel = "credit_level"
	FlagTimeGlitch  = "TIME_GLITCH_ACTIVE"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownScene  = errors.New("unknown scene")
	ErrUnknownNPC    = errors.New("unknown npc")
	ErrInvalidChoice = errors.New("invalid choice")
)

// LookupKind names what a LookupError failed to find.
type LookupKind string

const (
	KindAction   LookupKind = "action"
	KindScene    LookupKind = "scene"
	KindNPC      LookupKind = "npc"
	KindLocation LookupKind = "location"
)

// LookupError reports an id with no definition. It unwraps to the matching
// sentinel error.
type LookupError struct {
	Kind LookupKind
	ID   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind, e.ID)
}

func (e *LookupError) Unwrap() error {
	switch e.Kind {
	case KindAction:
		return ErrUnknownAction
	case KindScene:
		return ErrUnknownScene
	case KindNPC:
		return ErrUnknownNPC
	case KindLocation:
		return scenario.ErrLocationNotFound
	}
	return nil
}

// InventoryItem is a stack of one item kind.
type InventoryItem struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Player is the player's own state.
type Player struct {
	Location         string          `json:"location"`
	CreditLevel      int             `json:"credit_level"`
	Inventory        []InventoryItem `json:"inventory"`
	UnlockedCommands []string        `json:"unlocked_commands"`
}

// HasItem reports whether the inventory holds at least one of the item.
func (p *Player) HasItem(id string) bool {
	for _, it := range p.Inventory {
		if it.Item == id && it.Quantity > 0 {
			return true
		}
	}
	return false
}

// Quantity returns how many of the item the player holds.
func (p *Player) Quantity(id string) int {
	for _, it := range p.Inventory {
		if it.Item == id {
			return it.Quantity
		}
	}
	return 0
}

// addItem increments an existing stack or appends a new one. It returns false
// when a new stack would exceed MaxInventoryItems.
func (p *Player) addItem(id string) bool {
	for i := range p.Inventory {
		if p.Inventory[i].Item == id {
			p.Inventory[i].Quantity++
			return true
		}
	}
	if len(p.Inventory) >= MaxInventoryItems {
		return false
	}
	p.Inventory = append(p.Inventory, InventoryItem{Item: id, Quantity: 1})
	return true
}

// HasCommand reports whether a command has been unlocked.
func (p *Player) HasCommand(cmd string) bool {
	for _, c := range p.UnlockedCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

// unlockCommand adds cmd once. It returns false when the command list is full.
func (p *Player) unlockCommand(cmd string) bool {
	if p.HasCommand(cmd) {
		return true
	}
	if len(p.UnlockedCommands) >= MaxCommands {
		return false
	}
	p.UnlockedCommands = append(p.UnlockedCommands, cmd)
	return true
}

// WorldState is the mutable state of one game session.
type WorldState struct {
	ID      uuid.UUID
	Player  Player
	SceneID string
	Flags   *keyedmap.Map[string]
	Clock   *clock.Clock
	NPCs    map[string]*schedule.NPC
}

// SetFlag stores a flag value. Writing credit_level also updates the player's
// credit level when the value is an integer.
func (ws *WorldState) SetFlag(name, value string) {
	ws.Flags.Set(name, value)
	if name == FlagCreditLevel {
		if n, err := strconv.Atoi(value); err == nil {
			ws.Player.CreditLevel = n
		}
	}
}

// GetFlag returns a flag value and whether it is set.
func (ws *WorldState) GetFlag(name string) (string, bool) {
	return ws.Flags.Get(name)
}
