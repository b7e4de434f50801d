package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/jwebster45206/wired-engine/pkg/state"

// Options configures a new Session. Zero values select the defaults.
type Options struct {
	FlagBuckets     int
	LocationBuckets int
	Hash            keyedmap.HashFunc
	StartUnits      *uint32 // Elapsed clock units at start; nil means day 2, 20:00
	Logger          *slog.Logger
	Tracer          trace.Tracer
}

const defaultBuckets = 64

// DefaultStartUnits is the clock value of a new game.
var DefaultStartUnits = clock.At(2, 20, 0)

// Session is the context object for one game: the read-only catalog, the
// location registry built from it and the mutable world state. Everything
// except the clock must be used from a single goroutine.
type Session struct {
	World     *WorldState
	catalog   *scenario.Catalog
	locations *scenario.LocationRegistry
	logger    *slog.Logger
	tracer    trace.Tracer

	flagBuckets int
	mapOpts     []keyedmap.Option
}

// NewSession creates a new game from the catalog's start settings.
func NewSession(cat *scenario.Catalog, opts Options) (*Session, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	if opts.FlagBuckets == 0 {
		opts.FlagBuckets = defaultBuckets
	}
	if opts.LocationBuckets == 0 {
		opts.LocationBuckets = defaultBuckets
	}
	var mapOpts []keyedmap.Option
	if opts.Hash != nil {
		mapOpts = append(mapOpts, keyedmap.WithHash(opts.Hash))
	}

	locations, err := cat.NewRegistry(opts.LocationBuckets, mapOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build location registry: %w", err)
	}
	flags, err := keyedmap.New[string](opts.FlagBuckets, keyedmap.ModeReplace, mapOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create flag store: %w", err)
	}

	start := DefaultStartUnits
	if opts.StartUnits != nil {
		start = *opts.StartUnits
	}

	ws := &WorldState{
		ID:    uuid.New(),
		Flags: flags,
		Clock: clock.New(start, opts.Logger),
		NPCs:  make(map[string]*schedule.NPC, len(cat.NPCs)),
		Player: Player{
			Location:    cat.StartLocation(),
			CreditLevel: cat.Start.CreditLevel,
		},
		SceneID: cat.StartScene(),
	}
	for _, cmd := range cat.Start.Commands {
		ws.Player.unlockCommand(cmd)
	}
	keys := make([]string, 0, len(cat.Start.Flags))
	for k := range cat.Start.Flags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		ws.SetFlag(k, cat.Start.Flags[k])
	}
	for i := range cat.NPCs {
		def := &cat.NPCs[i]
		npc := schedule.NewNPC(def.ID, &def.Schedule)
		npc.Sanity = def.Sanity
		ws.NPCs[def.ID] = npc
	}

	s := &Session{
		World:     ws,
		catalog:   cat,
		locations: locations,
		logger:    opts.Logger,
		tracer:    opts.Tracer,

		flagBuckets: opts.FlagBuckets,
		mapOpts:     mapOpts,
	}
	s.RefreshNPCs()
	return s, nil
}

// Catalog returns the read-only game content.
func (s *Session) Catalog() *scenario.Catalog {
	return s.catalog
}

// Locations returns the location registry.
func (s *Session) Locations() *scenario.LocationRegistry {
	return s.locations
}

// DecodeClock reads the protected clock under its lock.
func (s *Session) DecodeClock() ecc.Result {
	return s.World.Clock.Read()
}

// GetClock implements conditionals.GameStateView.
func (s *Session) GetClock() ecc.Result {
	return s.DecodeClock()
}

// GetFlag implements conditionals.GameStateView.
func (s *Session) GetFlag(name string) (string, bool) {
	return s.World.GetFlag(name)
}

// SetFlag stores a world flag.
func (s *Session) SetFlag(name, value string) {
	s.World.SetFlag(name, value)
}

// HasItem implements scenario.AccessView.
func (s *Session) HasItem(id string) bool {
	return s.World.Player.HasItem(id)
}

// NPCSanity implements scenario.AccessView.
func (s *Session) NPCSanity(id string) (schedule.Sanity, bool) {
	npc, ok := s.World.NPCs[id]
	if !ok {
		return schedule.Normal, false
	}
	return npc.Sanity, true
}

// SetNPCSanity changes an NPC's tier and recomputes its placement.
func (s *Session) SetNPCSanity(id string, sanity schedule.Sanity) error {
	npc, ok := s.World.NPCs[id]
	if !ok {
		return &LookupError{Kind: KindNPC, ID: id}
	}
	npc.Sanity = sanity
	npc.Update(s.DecodeClock())
	return nil
}

// ResolveSchedule recomputes and returns where an NPC is now.
func (s *Session) ResolveSchedule(id string) (string, error) {
	npc, ok := s.World.NPCs[id]
	if !ok {
		return "", &LookupError{Kind: KindNPC, ID: id}
	}
	res := s.DecodeClock()
	loc := npc.Update(res)
	if res.Status == ecc.DoubleBitDetected {
		s.logger.Warn("Clock unreadable, NPC placed off map", "npc", id)
	}
	return loc, nil
}

// RefreshNPCs re-resolves every NPC from one clock reading. The ticker only
// advances the clock, so the session goroutine calls this after ticks.
func (s *Session) RefreshNPCs() {
	res := s.DecodeClock()
	for _, npc := range s.World.NPCs {
		npc.Update(res)
	}
}

// NPCsAt returns the ids of NPCs currently placed at a location, sorted.
func (s *Session) NPCsAt(location string) []string {
	var ids []string
	for id, npc := range s.World.NPCs {
		if npc.Location == location {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// IsConnectionAccessible evaluates the connection's predicate against the
// current world state.
func (s *Session) IsConnectionAccessible(c scenario.Connection) bool {
	return c.Access.Evaluate(s)
}

// CurrentLocation returns the player's location from the registry.
func (s *Session) CurrentLocation() (*scenario.Location, error) {
	loc, ok := s.locations.Find(s.World.Player.Location)
	if !ok {
		return nil, &LookupError{Kind: KindLocation, ID: s.World.Player.Location}
	}
	return loc, nil
}

// CurrentScene returns the story unit being shown.
func (s *Session) CurrentScene() (*scenario.StoryUnit, error) {
	unit, ok := s.catalog.Scene(s.World.SceneID)
	if !ok {
		return nil, &LookupError{Kind: KindScene, ID: s.World.SceneID}
	}
	return unit, nil
}

// SelectableChoices returns the current scene's choices whose conditions hold.
func (s *Session) SelectableChoices() []scenario.Choice {
	unit, err := s.CurrentScene()
	if err != nil {
		return nil
	}
	return unit.SelectableChoices(s)
}

// Transition makes target the current story unit and moves the player to the
// unit's location. An unknown id fails and leaves the world unchanged.
func (s *Session) Transition(ctx context.Context, target string) (*scenario.StoryUnit, error) {
	_, span := s.tracer.Start(ctx, "state.Transition",
		trace.WithAttributes(attribute.String("scene.id", target)))
	defer span.End()

	unit, ok := s.catalog.Scene(target)
	if !ok {
		err := &LookupError{Kind: KindScene, ID: target}
		span.RecordError(err)
		s.logger.Warn("Transition to unknown scene", "scene_id", target)
		return nil, err
	}

	from := s.World.SceneID
	s.World.SceneID = unit.ID
	s.World.Player.Location = unit.Location
	s.RefreshNPCs()

	s.logger.Info("Scene changed",
		"from", from,
		"to", unit.ID,
		"location", unit.Location)
	return unit, nil
}

// Choose applies the action of the i-th selectable choice of the current scene
// and follows any scene change.
func (s *Session) Choose(ctx context.Context, i int) (ActionResult, error) {
	choices := s.SelectableChoices()
	if i < 0 || i >= len(choices) {
		return ActionResult{}, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, i+1, len(choices))
	}
	return s.applyAndFollow(ctx, choices[i].Action)
}

// Traverse moves through the i-th exit of the player's location. A missing
// target location is a data error. An inaccessible exit shows its denied scene,
// if any, and otherwise changes nothing.
func (s *Session) Traverse(ctx context.Context, i int) (ActionResult, error) {
	loc, err := s.CurrentLocation()
	if err != nil {
		return ActionResult{}, err
	}
	conns := s.locations.ConnectionsFrom(loc)
	if i < 0 || i >= len(conns) {
		return ActionResult{}, fmt.Errorf("location %q has no connection %d", loc.ID, i)
	}
	conn := conns[i]
	if _, ok := s.locations.Find(conn.Target); !ok {
		return ActionResult{}, fmt.Errorf("connection %d from %q: %w",
			i, loc.ID, &LookupError{Kind: KindLocation, ID: conn.Target})
	}

	if !s.IsConnectionAccessible(conn) {
		s.logger.Info("Connection denied", "from", loc.ID, "to", conn.Target)
		res := ActionResult{Denied: true}
		if conn.Denied != "" {
			if _, err := s.Transition(ctx, conn.Denied); err != nil {
				return res, err
			}
			res.SceneChanged = true
			res.SceneID = conn.Denied
		}
		return res, nil
	}

	if conn.Action == "" {
		s.World.Player.Location = conn.Target
		return ActionResult{}, nil
	}
	return s.applyAndFollow(ctx, conn.Action)
}

// applyAndFollow applies an action and transitions to the scene it selects.
// The target scene is checked first so a missing scene leaves the world as it
// was.
func (s *Session) applyAndFollow(ctx context.Context, actionID string) (ActionResult, error) {
	if target := s.sceneFor(actionID, 0); target != "" {
		if _, ok := s.catalog.Scene(target); !ok {
			s.logger.Warn("Action targets unknown scene", "action_id", actionID, "scene_id", target)
			return ActionResult{}, fmt.Errorf("action %q: %w", actionID, &LookupError{Kind: KindScene, ID: target})
		}
	}
	res, err := s.ApplyAction(ctx, actionID)
	if err != nil {
		return res, err
	}
	if res.SceneChanged {
		if _, err := s.Transition(ctx, res.SceneID); err != nil {
			return res, err
		}
	}
	return res, nil
}

// StartClock runs a ticker over the world clock in a new goroutine. The ticker
// stops when ctx is cancelled or Stop is called.
func (s *Session) StartClock(ctx context.Context, interval time.Duration, step uint32, onTick clock.TickFunc) *clock.Ticker {
	tk := clock.NewTicker(s.World.Clock, interval, step, s.logger).OnTick(onTick)
	go tk.Run(ctx)
	return tk
}
