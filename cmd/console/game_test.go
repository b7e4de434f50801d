package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/internal/storage"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/jwebster45206/wired-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGame starts the sample catalog at the given clock value.
func newTestGame(t *testing.T, start uint32) (*game, *storage.MockStorage) {
	t.Helper()
	cat, err := scenario.Load(filepath.Join("..", "..", "data", "iwakura.json"))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := state.NewSession(cat, state.Options{StartUnits: &start, Logger: log})
	require.NoError(t, err)

	store := storage.NewMockStorage()
	return &game{session: s, store: store, logger: log}, store
}

func TestHandle_Choices(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGame(t, clock.At(2, 20, 0))

	out := g.handle(ctx, "9")
	assert.Equal(t, "That choice is not available.", out.Output)

	out = g.handle(ctx, "1")
	assert.Equal(t, "lains_room", g.session.World.Player.Location)
	assert.Contains(t, out.Output, "1. Look at the NAVI")
	assert.Contains(t, out.Output, "2. Leave")

	out = g.handle(ctx, "1")
	assert.Equal(t, "SCENE_01A_EXAMINE_NAVI", g.session.World.SceneID)
	assert.True(t, g.session.HasItem("navi"))
}

func TestHandle_CreditNotice(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGame(t, clock.At(2, 20, 0))

	// Open the fridge choice, then drop the credit level back below the milk.
	g.session.SetFlag("credit_level", "1")
	g.session.World.Player.CreditLevel = 0
	_, err := g.session.Transition(ctx, "SCENE_EXAMINE_FRIDGE")
	require.NoError(t, err)

	out := g.handle(ctx, "1")
	assert.Contains(t, out.Output, "Your credit level is too low for milk.")
	assert.False(t, g.session.HasItem("milk"))
}

func TestHandle_Go(t *testing.T) {
	ctx := context.Background()

	t.Run("open door", func(t *testing.T) {
		g, _ := newTestGame(t, clock.At(2, 20, 0))
		g.handle(ctx, "go 2")
		assert.Equal(t, "mikas_room", g.session.World.Player.Location)
		assert.Equal(t, "SCENE_MIKA_ROOM_UNLOCKED", g.session.World.SceneID)
	})

	t.Run("locked door", func(t *testing.T) {
		g, _ := newTestGame(t, clock.At(2, 9, 30))
		out := g.handle(ctx, "go 2")
		assert.Equal(t, "iwakura_upper_hallway", g.session.World.Player.Location)
		assert.Equal(t, "SCENE_MIKA_ROOM_LOCKED", g.session.World.SceneID)
		assert.NotEmpty(t, out.Output)
	})

	t.Run("exit without action", func(t *testing.T) {
		g, _ := newTestGame(t, clock.At(2, 20, 0))
		g.handle(ctx, "2") // downstairs
		require.Equal(t, "iwakura_living_room", g.session.World.Player.Location)

		out := g.handle(ctx, "go 1")
		assert.Equal(t, "iwakura_kitchen", g.session.World.Player.Location)
		assert.Contains(t, out.Output, "--- Area List Scan ---")
	})

	t.Run("bad input", func(t *testing.T) {
		g, _ := newTestGame(t, clock.At(2, 20, 0))
		assert.Equal(t, `"x" is not a number.`, g.handle(ctx, "go x").Output)
		assert.Equal(t, "Usage: go <n>", g.handle(ctx, "go").Output)
		assert.Equal(t, "You can't go that way.", g.handle(ctx, "go 7").Output)
	})
}

func TestHandle_Look(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGame(t, clock.At(2, 20, 0))

	out := g.handle(ctx, "look 1")
	assert.Equal(t, "Window: Telephone wires cut the evening sky into strips.", out.Output)
	assert.Equal(t, "There is nothing like that here.", g.handle(ctx, "look 4").Output)

	g.handle(ctx, "go 1")
	require.Equal(t, "lains_room", g.session.World.Player.Location)
	g.handle(ctx, "look 1")
	assert.Equal(t, "SCENE_01A_EXAMINE_NAVI", g.session.World.SceneID)
}

func TestHandle_Commands(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGame(t, clock.At(2, 20, 0))

	assert.Equal(t, "Command 'arls' is not available yet.", g.handle(ctx, "arls").Output)
	assert.Contains(t, g.handle(ctx, "inventory").Output, "--- Inventory ---")
	assert.Contains(t, g.handle(ctx, "i").Output, "(empty)")
	assert.NotEmpty(t, g.handle(ctx, "help").Output)
	assert.Equal(t, shellHelp, g.handle(ctx, "shell").Output)
	assert.Contains(t, g.handle(ctx, "dance").Output, `Unknown input "dance"`)
	assert.True(t, g.handle(ctx, "quit").Quit)
	assert.Equal(t, turn{}, g.handle(ctx, "   "))
}

func TestHandle_Time(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		corrupt []int
		want    string
	}{
		{"clean", nil, "Day 2, 20:00"},
		{"single flip", []int{3}, "Day 2, 20:00 (the clock flickers)"},
		{"double flip", []int{3, 12}, "The clock shows garbage. Time is glitching."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGame(t, clock.At(2, 20, 0))
			g.session.World.Clock.Corrupt(tt.corrupt...)
			assert.Equal(t, tt.want, g.handle(ctx, "time").Output)
		})
	}
}

func TestHandle_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	g, store := newTestGame(t, clock.At(2, 20, 0))

	assert.Equal(t, "No saved games.", g.handle(ctx, "saves").Output)

	out := g.handle(ctx, "save")
	id := g.session.World.ID
	assert.Equal(t, "Saved as "+id.String(), out.Output)
	assert.Contains(t, g.handle(ctx, "saves").Output, id.String())
	snap, err := store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "SCENE_00_ENTRY", snap.SceneID)

	g.handle(ctx, "1")
	require.Equal(t, "lains_room", g.session.World.Player.Location)

	g.handle(ctx, "load "+id.String())
	assert.Equal(t, "iwakura_upper_hallway", g.session.World.Player.Location)
	assert.Equal(t, "SCENE_00_ENTRY", g.session.World.SceneID)

	assert.Equal(t, `"nope" is not a save id.`, g.handle(ctx, "load nope").Output)
	missing := uuid.New()
	assert.Equal(t, "no saved game "+missing.String(), g.handle(ctx, "load "+missing.String()).Output)
}

func TestHandle_Copy(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGame(t, clock.At(2, 20, 0))

	assert.Equal(t, "Clipboard is not available.", g.handle(ctx, "copy").Output)

	var copied string
	g.copyFn = func(s string) error {
		copied = s
		return nil
	}
	assert.Equal(t, "Scene copied to clipboard.", g.handle(ctx, "copy").Output)
	assert.Equal(t, g.describeScene(), copied)
	assert.True(t, strings.HasSuffix(copied, "3. Wait a minute"))

	g.copyFn = func(string) error { return errors.New("no display") }
	assert.Equal(t, "Copy failed: no display", g.handle(ctx, "copy").Output)
}

func TestHashFunc(t *testing.T) {
	for _, name := range []string{"", "djb2", "xxhash"} {
		h, err := hashFunc(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, h, name)
	}
	_, err := hashFunc("md5")
	assert.Error(t, err)
}

func TestCheckCatalog(t *testing.T) {
	cat, err := scenario.Load(filepath.Join("..", "..", "data", "iwakura.json"))
	require.NoError(t, err)
	assert.NoError(t, checkCatalog(cat))

	cat.Actions = append(cat.Actions, scenario.Action{
		ID:      "go_nowhere",
		Type:    scenario.ActionStoryChange,
		Payload: scenario.Payload{Scene: "SCENE_MISSING"},
	})
	cat.Index()
	err = checkCatalog(cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCENE_MISSING")
}
