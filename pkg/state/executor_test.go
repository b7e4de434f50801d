package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestCatalog(t *testing.T) *scenario.Catalog {
	t.Helper()
	cat, err := scenario.Load(filepath.Join("testdata", "catalog.json"))
	if err != nil {
		t.Fatalf("Failed to load test catalog: %v", err)
	}
	// Some actions deliberately point at SCENE_DOES_NOT_EXIST.
	for _, err := range cat.Validate() {
		if !strings.Contains(err.Error(), "SCENE_DOES_NOT_EXIST") {
			t.Fatalf("Unexpected catalog error: %v", err)
		}
	}
	return cat
}

func newTestSession(t *testing.T, start uint32) *Session {
	t.Helper()
	s, err := NewSession(loadTestCatalog(t), Options{
		StartUnits: &start,
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestNewSession_StartState(t *testing.T) {
	s := newTestSession(t, DefaultStartUnits)

	if s.World.Player.Location != "upper_hallway" {
		t.Errorf("Expected start location upper_hallway, got %q", s.World.Player.Location)
	}
	if s.World.SceneID != "SCENE_00_ENTRY" {
		t.Errorf("Expected start scene SCENE_00_ENTRY, got %q", s.World.SceneID)
	}
	if s.World.Player.CreditLevel != 1 {
		t.Errorf("Expected credit level 1, got %d", s.World.Player.CreditLevel)
	}
	if v, ok := s.GetFlag("sister_mood"); !ok || v != "cold" {
		t.Errorf("Expected sister_mood=cold, got %q (%v)", v, ok)
	}
	if loc := s.World.NPCs["mika"].Location; loc != "kitchen" {
		t.Errorf("Expected mika in kitchen at 20:00, got %q", loc)
	}
}

func TestApplyAction_AcquireItemRequiresCredit(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, DefaultStartUnits)

	res, err := s.ApplyAction(ctx, "get_milk")
	if err != nil {
		t.Fatalf("ApplyAction failed: %v", err)
	}
	if s.World.Player.HasItem("milk") {
		t.Fatal("Milk requires credit level 2, should not be acquired at level 1")
	}
	if res.ItemDenied != "milk" {
		t.Errorf("Expected ItemDenied=milk, got %q", res.ItemDenied)
	}

	if _, err := s.ApplyAction(ctx, "raise_credit"); err != nil {
		t.Fatal(err)
	}
	if s.World.Player.CreditLevel != 2 {
		t.Fatalf("Expected credit_level flag to raise credit level to 2, got %d", s.World.Player.CreditLevel)
	}

	if _, err := s.ApplyAction(ctx, "get_milk"); err != nil {
		t.Fatal(err)
	}
	if q := s.World.Player.Quantity("milk"); q != 1 {
		t.Errorf("Expected milk quantity 1, got %d", q)
	}

	if _, err := s.ApplyAction(ctx, "get_milk"); err != nil {
		t.Fatal(err)
	}
	if q := s.World.Player.Quantity("milk"); q != 2 {
		t.Errorf("Expected milk quantity 2, got %d", q)
	}
	if n := len(s.World.Player.Inventory); n != 1 {
		t.Errorf("Expected a single inventory entry, got %d", n)
	}
}

func TestApplyAction_UnknownActionChangesNothing(t *testing.T) {
	s := newTestSession(t, DefaultStartUnits)
	before := s.Snapshot()

	res, err := s.ApplyAction(context.Background(), "fly_away")
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Expected ErrUnknownAction, got %v", err)
	}
	var lookup *LookupError
	if !errors.As(err, &lookup) || lookup.ID != "fly_away" {
		t.Errorf("Expected LookupError for fly_away, got %v", err)
	}
	if res.SceneChanged {
		t.Error("Unknown action must not change the scene")
	}
	after := s.Snapshot()
	if before.Location != after.Location || before.SceneID != after.SceneID || len(after.Inventory) != 0 {
		t.Error("World state changed after unknown action")
	}
}

func TestApplyAction_SceneAndLocationAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, DefaultStartUnits)

	res, err := s.ApplyAction(ctx, "enter_mika_room")
	if err != nil {
		t.Fatal(err)
	}
	if !res.SceneChanged || res.SceneID != "SCENE_MIKA_ROOM" {
		t.Errorf("Expected scene change to SCENE_MIKA_ROOM, got %+v", res)
	}
	if s.World.Player.Location != "upper_hallway" {
		t.Errorf("ApplyAction alone must not move the player, got %q", s.World.Player.Location)
	}

	res, err = s.ApplyAction(ctx, "teleport")
	if err != nil {
		t.Fatal(err)
	}
	if res.SceneChanged {
		t.Error("teleport should not change the scene")
	}
	if s.World.Player.Location != "kitchen" {
		t.Errorf("Expected kitchen, got %q", s.World.Player.Location)
	}
}

func TestApplyAction_UnlockCommandsIsASet(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, DefaultStartUnits)

	for i := 0; i < 2; i++ {
		if _, err := s.ApplyAction(ctx, "get_navi"); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"inventory", "arls", "help"}
	got := s.World.Player.UnlockedCommands
	if len(got) != len(want) {
		t.Fatalf("Expected commands %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Command %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestApplyAction_CapacityIsReported(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, DefaultStartUnits)

	for i := 0; i < MaxInventoryItems; i++ {
		s.World.Player.Inventory = append(s.World.Player.Inventory, InventoryItem{Item: fmt.Sprintf("junk_%d", i), Quantity: 1})
	}
	res, err := s.ApplyAction(ctx, "get_navi")
	if err != nil {
		t.Fatal(err)
	}
	if res.InventoryCapped != "navi" {
		t.Errorf("Expected InventoryCapped=navi, got %q", res.InventoryCapped)
	}
	if len(s.World.Player.Inventory) != MaxInventoryItems {
		t.Errorf("Inventory grew past its capacity: %d", len(s.World.Player.Inventory))
	}

	s.World.Player.UnlockedCommands = nil
	for i := 0; i < MaxCommands; i++ {
		s.World.Player.UnlockedCommands = append(s.World.Player.UnlockedCommands, fmt.Sprintf("cmd_%d", i))
	}
	res, err = s.ApplyAction(ctx, "get_navi")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.CommandsCapped) != 2 {
		t.Errorf("Expected help and arls to be capped, got %v", res.CommandsCapped)
	}
}

func TestApplyAction_ConditionalActionByFlag(t *testing.T) {
	tests := []struct {
		name     string
		mood     *string
		expected string
	}{
		{"cold", strPtr("cold"), "SCENE_SISTER_COLD"},
		{"curious", strPtr("curious"), "SCENE_SISTER_CURIOUS"},
		{"unmapped value", strPtr("angry"), "SCENE_SISTER_DEFAULT"},
		{"flag missing", nil, "SCENE_SISTER_DEFAULT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, DefaultStartUnits)
			if tt.mood != nil {
				s.SetFlag("sister_mood", *tt.mood)
			} else {
				s.World.Flags, _ = keyedmap.New[string](8, keyedmap.ModeReplace)
			}
			res, err := s.ApplyAction(context.Background(), "talk_to_sister")
			if err != nil {
				t.Fatal(err)
			}
			if res.SceneID != tt.expected {
				t.Errorf("Expected %s, got %q", tt.expected, res.SceneID)
			}
		})
	}
}

func TestApplyAction_ConditionalStoryChange(t *testing.T) {
	tests := []struct {
		value    string
		set      bool
		expected string
	}{
		{"1", true, "SCENE_MIKA_ROOM"},
		{"yes", true, "SCENE_MIKA_ROOM"},
		{"0", true, "SCENE_DOWNSTAIRS"},
		{"false", true, "SCENE_DOWNSTAIRS"},
		{"", true, "SCENE_DOWNSTAIRS"},
		{"", false, "SCENE_DOWNSTAIRS"},
	}
	for _, tt := range tests {
		s := newTestSession(t, DefaultStartUnits)
		if tt.set {
			s.SetFlag("navi_rebooted", tt.value)
		}
		res, err := s.ApplyAction(context.Background(), "check_reboot")
		if err != nil {
			t.Fatal(err)
		}
		if res.SceneID != tt.expected {
			t.Errorf("navi_rebooted=%q (set=%v): expected %s, got %s", tt.value, tt.set, tt.expected, res.SceneID)
		}
	}
}

func TestApplyAction_ChainDepthIsBounded(t *testing.T) {
	s := newTestSession(t, DefaultStartUnits)
	res, err := s.ApplyAction(context.Background(), "loop")
	if err != nil {
		t.Fatalf("Self-referencing chain should stop quietly, got %v", err)
	}
	if res.SceneChanged {
		t.Error("Expected no scene change from a self-referencing chain")
	}
}

func TestApplyAction_TimeCost(t *testing.T) {
	start := clock.At(2, 20, 0)
	s := newTestSession(t, start)
	if _, err := s.ApplyAction(context.Background(), "go_downstairs"); err != nil {
		t.Fatal(err)
	}
	if got := s.DecodeClock().Data; got != start+5*clock.UnitsPerMinute {
		t.Errorf("Expected clock at %s, got %s", clock.Format(start+5*clock.UnitsPerMinute), clock.Format(got))
	}
}

func TestApplyAction_NPCMoves(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, clock.At(2, 8, 30))

	if _, err := s.ApplyAction(ctx, "mika_to_hallway"); err != nil {
		t.Fatal(err)
	}
	if loc, _ := s.ResolveSchedule("mika"); loc != "upper_hallway" {
		t.Errorf("Scripted placement should hold, got %q", loc)
	}

	if _, err := s.ApplyAction(ctx, "mika_release"); err != nil {
		t.Fatal(err)
	}
	if loc, _ := s.ResolveSchedule("mika"); loc != "kitchen" {
		t.Errorf("Released NPC should follow the schedule, got %q", loc)
	}
}

func TestResolveSchedule(t *testing.T) {
	s := newTestSession(t, clock.At(2, 12, 0))

	if loc, _ := s.ResolveSchedule("mika"); loc != schedule.OffMap {
		t.Errorf("Expected mika off map at noon, got %q", loc)
	}
	if err := s.SetNPCSanity("mika", schedule.Broken); err != nil {
		t.Fatal(err)
	}
	if loc, _ := s.ResolveSchedule("mika"); loc != "mikas_room" {
		t.Errorf("Broken sanity should pin mika to her room, got %q", loc)
	}

	s.World.Clock.Corrupt(2, 6)
	_ = s.SetNPCSanity("mika", schedule.Normal)
	if loc, _ := s.ResolveSchedule("mika"); loc != schedule.OffMap {
		t.Errorf("Corrupted clock should place mika off map, got %q", loc)
	}

	if _, err := s.ResolveSchedule("ghost"); !errors.Is(err, ErrUnknownNPC) {
		t.Errorf("Expected ErrUnknownNPC, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
