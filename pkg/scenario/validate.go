package scenario

import (
	"fmt"

	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

// Validate checks the catalog for dangling references, duplicate ids and
// capacity overflows. It returns one error per problem found.
func (c *Catalog) Validate() []error {
	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	locations := make(map[string]bool, len(c.Locations))
	for _, loc := range c.Locations {
		if loc.ID == "" {
			report("location with empty id")
			continue
		}
		if locations[loc.ID] {
			report("duplicate location id %q", loc.ID)
		}
		locations[loc.ID] = true
	}
	if len(c.Locations) > MaxLocations {
		report("%d locations: %w (max %d)", len(c.Locations), ErrCapacityExceeded, MaxLocations)
	}
	if len(c.Items) > MaxItems {
		report("%d items: %w (max %d)", len(c.Items), ErrCapacityExceeded, MaxItems)
	}
	if len(c.Actions) > MaxActions {
		report("%d actions: %w (max %d)", len(c.Actions), ErrCapacityExceeded, MaxActions)
	}

	seen := map[string]bool{}
	for _, a := range c.Actions {
		if seen[a.ID] {
			report("duplicate action id %q", a.ID)
		}
		seen[a.ID] = true
	}
	seen = map[string]bool{}
	for _, s := range c.Scenes {
		if seen[s.ID] {
			report("duplicate scene id %q", s.ID)
		}
		seen[s.ID] = true
	}

	hasScene := func(id string) bool {
		_, ok := c.Scene(id)
		return ok
	}
	hasAction := func(id string) bool {
		_, ok := c.Action(id)
		return ok
	}
	hasLocation := func(id string) bool {
		return locations[id]
	}

	if !hasLocation(c.StartLocation()) {
		report("start location %q is not defined", c.StartLocation())
	}
	if !hasScene(c.StartScene()) {
		report("start scene %q is not defined", c.StartScene())
	}

	for _, loc := range c.Locations {
		if len(loc.Connections) > MaxConnections {
			report("location %q has %d connections: %w (max %d)", loc.ID, len(loc.Connections), ErrCapacityExceeded, MaxConnections)
		}
		if len(loc.POIs) > MaxPOIs {
			report("location %q has %d points of interest: %w (max %d)", loc.ID, len(loc.POIs), ErrCapacityExceeded, MaxPOIs)
		}
		for _, p := range loc.POIs {
			if p.Examine != "" && !hasScene(p.Examine) {
				report("location %q point of interest %q examines unknown scene %q", loc.ID, p.ID, p.Examine)
			}
		}
		for i, conn := range loc.Connections {
			if !hasLocation(conn.Target) {
				report("location %q connection %d targets unknown location %q: %w", loc.ID, i, conn.Target, ErrLocationNotFound)
			}
			if conn.Action != "" && !hasAction(conn.Action) {
				report("location %q connection %d uses unknown action %q", loc.ID, i, conn.Action)
			}
			if conn.Denied != "" && !hasScene(conn.Denied) {
				report("location %q connection %d denies to unknown scene %q", loc.ID, i, conn.Denied)
			}
			c.validateAccess(conn.Access, fmt.Sprintf("location %q connection %d", loc.ID, i), report)
		}
	}

	for _, a := range c.Actions {
		p := a.Payload
		for _, id := range []string{p.Scene, p.StoryIfTrue, p.StoryIfFalse} {
			if id != "" && !hasScene(id) {
				report("action %q references unknown scene %q", a.ID, id)
			}
		}
		if p.NewLocation != "" && !hasLocation(p.NewLocation) {
			report("action %q moves player to unknown location %q", a.ID, p.NewLocation)
		}
		if a.Type == ActionAcquireItem {
			if _, ok := c.Item(p.ItemID); !ok {
				report("action %q acquires unknown item %q", a.ID, p.ItemID)
			}
		}
		if a.Type == ActionConditionalStoryChange || a.Type == ActionConditionalByFlag {
			if p.FlagName == "" {
				report("action %q of type %s has no flag_name", a.ID, a.Type)
			}
		}
		for value, next := range p.ValueActions {
			if !hasAction(next) {
				report("action %q maps %q to unknown action %q", a.ID, value, next)
			}
		}
		if p.DefaultAction != "" && !hasAction(p.DefaultAction) {
			report("action %q defaults to unknown action %q", a.ID, p.DefaultAction)
		}
		for _, m := range p.NPCMoves {
			if _, ok := c.NPC(m.NPC); !ok {
				report("action %q moves unknown npc %q", a.ID, m.NPC)
			}
			if !m.Release && m.Location != schedule.OffMap && !hasLocation(m.Location) {
				report("action %q moves npc %q to unknown location %q", a.ID, m.NPC, m.Location)
			}
		}
	}

	for _, s := range c.Scenes {
		if !hasLocation(s.Location) {
			report("scene %q is bound to unknown location %q", s.ID, s.Location)
		}
		if len(s.Choices) > MaxChoicesPerScene {
			report("scene %q has %d choices: %w (max %d)", s.ID, len(s.Choices), ErrCapacityExceeded, MaxChoicesPerScene)
		}
		for i, ch := range s.Choices {
			if !hasAction(ch.Action) {
				report("scene %q choice %d uses unknown action %q", s.ID, i, ch.Action)
			}
		}
	}

	for _, n := range c.NPCs {
		for tier, table := range []schedule.Table{n.Schedule.Normal, n.Schedule.Paranoid} {
			for i, e := range table {
				if e.Location != schedule.OffMap && !hasLocation(e.Location) {
					report("npc %q %s schedule entry %d uses unknown location %q", n.ID, tierName(tier), i, e.Location)
				}
				if i > 0 && e.Start < table[i-1].Start {
					report("npc %q %s schedule entry %d starts before entry %d", n.ID, tierName(tier), i, i-1)
				}
			}
		}
		if n.Schedule.SafeRoom != "" && !hasLocation(n.Schedule.SafeRoom) {
			report("npc %q safe room %q is not defined", n.ID, n.Schedule.SafeRoom)
		}
	}

	return errs
}

func tierName(table int) string {
	if table == 0 {
		return "normal"
	}
	return "paranoid"
}

func (c *Catalog) validateAccess(a *Access, where string, report func(string, ...any)) {
	if a == nil {
		return
	}
	switch a.Kind {
	case "", AccessAlways:
	case AccessHasItem:
		if _, ok := c.Item(a.Item); !ok {
			report("%s requires unknown item %q", where, a.Item)
		}
	case AccessTimeWindow:
		if a.From == a.Until {
			report("%s has an empty time window", where)
		}
	case AccessSanityBelow:
		if _, ok := c.NPC(a.NPC); !ok {
			report("%s checks unknown npc %q", where, a.NPC)
		}
	case AccessAll, AccessAny:
		for i := range a.Of {
			c.validateAccess(&a.Of[i], where, report)
		}
	default:
		report("%s has unknown access kind %q", where, a.Kind)
	}
}
