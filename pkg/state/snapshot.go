package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

// Snapshot is the persisted form of a WorldState. The clock is stored as its
// raw codeword so corruption survives a save/load round trip.
type Snapshot struct {
	ID               uuid.UUID               `json:"id"`
	Location         string                  `json:"location"`
	CreditLevel      int                     `json:"credit_level"`
	Inventory        []InventoryItem         `json:"inventory"`
	UnlockedCommands []string                `json:"unlocked_commands"`
	SceneID          string                  `json:"scene_id"`
	TimeOfDay        ecc.Codeword            `json:"time_of_day"`
	Flags            map[string]string       `json:"flags"`
	NPCs             map[string]schedule.NPC `json:"npcs"`
}

// Snapshot captures the current world state.
func (s *Session) Snapshot() *Snapshot {
	ws := s.World
	snap := &Snapshot{
		ID:               ws.ID,
		Location:         ws.Player.Location,
		CreditLevel:      ws.Player.CreditLevel,
		Inventory:        append([]InventoryItem(nil), ws.Player.Inventory...),
		UnlockedCommands: append([]string(nil), ws.Player.UnlockedCommands...),
		SceneID:          ws.SceneID,
		TimeOfDay:        ws.Clock.Codeword(),
		Flags:            ws.Flags.Snapshot(),
		NPCs:             make(map[string]schedule.NPC, len(ws.NPCs)),
	}
	for id, npc := range ws.NPCs {
		snap.NPCs[id] = *npc
	}
	return snap
}

// Restore replaces the world state with a snapshot. A scene or location the
// catalog does not define is rejected before anything changes. NPCs not defined
// in the catalog are skipped. The TIME_GLITCH_ACTIVE flag records whether the restored
// clock is readable.
func (s *Session) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if _, ok := s.catalog.Scene(snap.SceneID); !ok {
		return fmt.Errorf("snapshot %s: %w", snap.ID, &LookupError{Kind: KindScene, ID: snap.SceneID})
	}
	if _, ok := s.locations.Find(snap.Location); !ok {
		return fmt.Errorf("snapshot %s: %w", snap.ID, &LookupError{Kind: KindLocation, ID: snap.Location})
	}
	ws := s.World

	flags, err := keyedmap.New[string](s.flagBuckets, keyedmap.ModeReplace, s.mapOpts...)
	if err != nil {
		return fmt.Errorf("failed to create flag store: %w", err)
	}

	ws.ID = snap.ID
	ws.Player = Player{
		Location:    snap.Location,
		CreditLevel: snap.CreditLevel,
	}
	for _, it := range snap.Inventory {
		if len(ws.Player.Inventory) >= MaxInventoryItems {
			s.logger.Warn("Snapshot inventory truncated", "max", MaxInventoryItems)
			break
		}
		ws.Player.Inventory = append(ws.Player.Inventory, it)
	}
	for _, cmd := range snap.UnlockedCommands {
		if !ws.Player.unlockCommand(cmd) {
			s.logger.Warn("Snapshot commands truncated", "max", MaxCommands)
			break
		}
	}
	ws.SceneID = snap.SceneID
	ws.Flags = flags
	for k, v := range snap.Flags {
		ws.Flags.Set(k, v)
	}

	ws.Clock.Restore(snap.TimeOfDay)
	res := ws.Clock.Read()
	glitch := "0"
	if res.Status == ecc.DoubleBitDetected {
		glitch = "1"
		s.logger.Warn("Restored clock is corrupted", "codeword", uint32(snap.TimeOfDay))
	}
	ws.Flags.Set(FlagTimeGlitch, glitch)

	for id, npc := range ws.NPCs {
		saved, ok := snap.NPCs[id]
		if !ok {
			npc.Manual = false
			npc.Sanity = schedule.Normal
			if def, ok := s.catalog.NPC(id); ok {
				npc.Sanity = def.Sanity
			}
			npc.Update(res)
			continue
		}
		npc.Location = saved.Location
		npc.Manual = saved.Manual
		npc.Sanity = saved.Sanity
		if !npc.Manual {
			npc.Update(res)
		}
	}
	for id := range snap.NPCs {
		if _, ok := ws.NPCs[id]; !ok {
			s.logger.Warn("Snapshot NPC not in catalog", "npc", id)
		}
	}

	s.logger.Debug("World state restored",
		"id", ws.ID.String(),
		"scene_id", ws.SceneID,
		"clock_status", res.Status.String())
	return nil
}
