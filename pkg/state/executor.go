package state

import (
	"context"

	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/conditionals"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxActionDepth bounds conditional_action_by_flag chains.
const maxActionDepth = 8

// ActionResult reports the effects of ApplyAction that callers may act on.
type ActionResult struct {
	SceneChanged bool
	SceneID      string // Story unit to transition to when SceneChanged

	Denied          bool     // Traverse only: the connection was not accessible
	ItemDenied      string   // Item whose credit requirement was not met
	InventoryCapped string   // Item dropped because the inventory is full
	CommandsCapped  []string // Commands dropped because the command list is full
}

// ApplyAction applies the payload of a catalog action to the world state.
// Effects run in a fixed order: scene selection, player location, item
// acquisition, command unlocks, flag writes, time cost, then NPC moves.
// An unknown id fails with ErrUnknownAction and changes nothing. Capacity
// overflows are not errors; they are reported in the result.
func (s *Session) ApplyAction(ctx context.Context, id string) (ActionResult, error) {
	_, span := s.tracer.Start(ctx, "state.ApplyAction",
		trace.WithAttributes(attribute.String("action.id", id)))
	defer span.End()

	var res ActionResult
	if _, ok := s.catalog.Action(id); !ok {
		err := &LookupError{Kind: KindAction, ID: id}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("Unknown action", "action_id", id)
		return res, err
	}

	w := &actionWorker{s: s, res: &res}
	w.apply(id, 0)

	span.SetAttributes(attribute.Bool("scene.changed", res.SceneChanged))
	if res.SceneChanged {
		span.SetAttributes(attribute.String("scene.id", res.SceneID))
	}
	return res, nil
}

// sceneFor returns the scene an action would select against the current world
// state without applying any of its effects. Scene selection runs before every
// other effect at each level of a chain, so this matches what apply records.
func (s *Session) sceneFor(id string, depth int) string {
	if depth > maxActionDepth {
		return ""
	}
	action, ok := s.catalog.Action(id)
	if !ok {
		return ""
	}
	p := &action.Payload
	switch action.Type {
	case scenario.ActionConditionalStoryChange:
		if conditionals.Truthy(s.World.GetFlag(p.FlagName)) {
			return p.StoryIfTrue
		}
		return p.StoryIfFalse
	case scenario.ActionConditionalByFlag:
		if next := nextByFlag(s.World, p); next != "" {
			return s.sceneFor(next, depth+1)
		}
		return ""
	}
	return p.Scene
}

// actionWorker applies one action and any actions it chains to.
type actionWorker struct {
	s   *Session
	res *ActionResult
}

func (w *actionWorker) apply(id string, depth int) {
	logger := w.s.logger
	if depth > maxActionDepth {
		logger.Warn("Action chain too deep, stopping", "action_id", id, "depth", depth)
		return
	}
	action, ok := w.s.catalog.Action(id)
	if !ok {
		logger.Warn("Chained action not found", "action_id", id)
		return
	}
	p := &action.Payload

	// Scene selection
	switch action.Type {
	case scenario.ActionConditionalStoryChange:
		w.handleConditionalStory(p)
	case scenario.ActionConditionalByFlag:
		w.handleConditionalAction(p, depth)
	default:
		if p.Scene != "" {
			w.changeScene(p.Scene)
		}
	}

	// Player location
	if p.NewLocation != "" {
		if p.NewLocation != w.s.World.Player.Location {
			logger.Info("Location changed",
				"from", w.s.World.Player.Location,
				"to", p.NewLocation,
				"action_id", id)
		}
		w.s.World.Player.Location = p.NewLocation
	}

	if action.Type == scenario.ActionAcquireItem {
		w.handleAcquireItem(p.ItemID)
	}

	for _, cmd := range p.Commands {
		if !w.s.World.Player.unlockCommand(cmd) {
			logger.Warn("Command list full, command dropped", "command", cmd, "max", MaxCommands)
			w.res.CommandsCapped = append(w.res.CommandsCapped, cmd)
		}
	}

	for _, fw := range p.Flags {
		w.s.World.SetFlag(fw.Name, fw.Value.String())
	}

	if p.TimeCost > 0 {
		units, status := w.s.World.Clock.Advance(uint32(p.TimeCost) * clock.UnitsPerMinute)
		logger.Debug("Time advanced",
			"minutes", p.TimeCost,
			"time", clock.Format(units),
			"status", status.String())
	}

	for _, m := range p.NPCMoves {
		w.handleNPCMove(m)
	}
}

func (w *actionWorker) changeScene(id string) {
	w.res.SceneChanged = true
	w.res.SceneID = id
}

// handleConditionalStory picks a scene on whether a flag is truthy.
func (w *actionWorker) handleConditionalStory(p *scenario.Payload) {
	target := p.StoryIfFalse
	if conditionals.Truthy(w.s.World.GetFlag(p.FlagName)) {
		target = p.StoryIfTrue
	}
	if target != "" {
		w.changeScene(target)
	}
}

// handleConditionalAction runs the action mapped to a flag's value, or the default.
func (w *actionWorker) handleConditionalAction(p *scenario.Payload, depth int) {
	if next := nextByFlag(w.s.World, p); next != "" {
		w.apply(next, depth+1)
	}
}

// nextByFlag picks the action mapped to the flag's current value, or the default.
func nextByFlag(ws *WorldState, p *scenario.Payload) string {
	if value, ok := ws.GetFlag(p.FlagName); ok {
		if next := p.ValueActions[value]; next != "" {
			return next
		}
	}
	return p.DefaultAction
}

// handleAcquireItem adds an item when the player's credit level allows it
func (w *actionWorker) handleAcquireItem(itemID string) {
	logger := w.s.logger
	item, ok := w.s.catalog.Item(itemID)
	if !ok {
		logger.Warn("Item not found", "item", itemID)
		return
	}
	player := &w.s.World.Player
	if player.CreditLevel < item.RequiredCredit {
		logger.Info("Credit level too low for item",
			"item", item.ID,
			"credit_level", player.CreditLevel,
			"required_credit", item.RequiredCredit)
		w.res.ItemDenied = item.ID
		return
	}
	if !player.addItem(item.ID) {
		logger.Warn("Inventory full, item dropped", "item", item.ID, "max", MaxInventoryItems)
		w.res.InventoryCapped = item.ID
		return
	}
	logger.Info("Item acquired", "item", item.ID, "quantity", player.Quantity(item.ID))
}

// handleNPCMove places or releases an NPC
func (w *actionWorker) handleNPCMove(m scenario.NPCMove) {
	logger := w.s.logger
	npc, ok := w.s.World.NPCs[m.NPC]
	if !ok {
		logger.Warn("NPC not found for movement", "npc_id", m.NPC)
		return
	}
	if m.Release {
		npc.Release()
		loc := npc.Update(w.s.DecodeClock())
		logger.Info("NPC released to schedule", "npc", m.NPC, "location", loc)
		return
	}
	from := npc.Location
	npc.MoveTo(m.Location)
	logger.Info("NPC moved",
		"npc", m.NPC,
		"from", from,
		"to", npc.Location)
}
