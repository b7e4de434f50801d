package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/internal/storage"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/state"
)

// game turns player input into session calls. It is driven from the UI
// goroutine only.
type game struct {
	session *state.Session
	store   storage.Storage
	copyFn  func(string) error
	logger  *slog.Logger
}

// turn is the outcome of one line of input.
type turn struct {
	Output string
	Quit   bool
}

const shellHelp = `Shell:
  <n>          pick choice n
  go <n>       take exit n
  look <n>     examine point of interest n
  time         show the clock
  save         save the game
  saves        list saved games
  load <id>    load a saved game
  copy         copy the scene text to the clipboard
  quit         leave`

func (g *game) handle(ctx context.Context, input string) turn {
	input = strings.TrimSpace(input)
	if input == "" {
		return turn{}
	}
	fields := strings.Fields(strings.ToLower(input))

	switch fields[0] {
	case "quit", "exit", "q":
		return turn{Quit: true}
	case "go":
		return g.withIndex(fields, func(i int) turn { return g.traverse(ctx, i) })
	case "look":
		return g.withIndex(fields, func(i int) turn { return g.look(ctx, i) })
	case "time":
		return turn{Output: g.describeTime()}
	case "save":
		return g.save(ctx)
	case "saves":
		return g.listSaves(ctx)
	case "load":
		if len(fields) != 2 {
			return turn{Output: "Usage: load <id>"}
		}
		return g.load(ctx, fields[1])
	case "copy":
		return g.copyScene()
	case "shell":
		return turn{Output: shellHelp}
	}

	if n, err := strconv.Atoi(fields[0]); err == nil && len(fields) == 1 {
		return g.choose(ctx, n-1)
	}

	cmd := state.ParseCommand(input)
	if cmd == state.CmdNone {
		return turn{Output: fmt.Sprintf("Unknown input %q. Type 'shell' for shell commands.", input)}
	}
	if cmd != state.CmdHelp && !g.session.World.Player.HasCommand(string(cmd)) {
		return turn{Output: fmt.Sprintf("Command '%s' is not available yet.", cmd)}
	}
	res := g.session.TryHandleCommand(input)
	return turn{Output: res.Message}
}

func (g *game) withIndex(fields []string, fn func(int) turn) turn {
	if len(fields) != 2 {
		return turn{Output: fmt.Sprintf("Usage: %s <n>", fields[0])}
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return turn{Output: fmt.Sprintf("%q is not a number.", fields[1])}
	}
	return fn(n - 1)
}

func (g *game) choose(ctx context.Context, i int) turn {
	res, err := g.session.Choose(ctx, i)
	if err != nil {
		if errors.Is(err, state.ErrInvalidChoice) {
			return turn{Output: "That choice is not available."}
		}
		g.logger.Error("Choice failed", "index", i, "error", err)
		return turn{Output: "Error: " + err.Error()}
	}
	return turn{Output: g.describeResult(res)}
}

func (g *game) traverse(ctx context.Context, i int) turn {
	res, err := g.session.Traverse(ctx, i)
	if err != nil {
		g.logger.Warn("Traverse failed", "index", i, "error", err)
		return turn{Output: "You can't go that way."}
	}
	if res.Denied && !res.SceneChanged {
		return turn{Output: "The way is closed."}
	}
	if !res.SceneChanged {
		return turn{Output: g.session.DescribeLocation()}
	}
	return turn{Output: g.describeResult(res)}
}

func (g *game) look(ctx context.Context, i int) turn {
	loc, err := g.session.CurrentLocation()
	if err != nil {
		return turn{Output: "Error: " + err.Error()}
	}
	if i >= len(loc.POIs) {
		return turn{Output: "There is nothing like that here."}
	}
	poi := loc.POIs[i]
	if poi.Examine == "" {
		text := poi.Description
		if text == "" {
			text = "Nothing unusual."
		}
		return turn{Output: poi.Name + ": " + text}
	}
	if _, err := g.session.Transition(ctx, poi.Examine); err != nil {
		g.logger.Error("Examine failed", "poi", poi.ID, "error", err)
		return turn{Output: "Error: " + err.Error()}
	}
	return turn{Output: g.describeScene()}
}

// describeResult renders the scene after an action, plus any capacity or
// credit notices.
func (g *game) describeResult(res state.ActionResult) string {
	var notes []string
	if res.ItemDenied != "" {
		notes = append(notes, fmt.Sprintf("Your credit level is too low for %s.", res.ItemDenied))
	}
	if res.InventoryCapped != "" {
		notes = append(notes, fmt.Sprintf("Your inventory is full; %s was left behind.", res.InventoryCapped))
	}
	if len(res.CommandsCapped) > 0 {
		notes = append(notes, fmt.Sprintf("No room for new commands: %s.", strings.Join(res.CommandsCapped, ", ")))
	}
	out := g.describeScene()
	if len(notes) > 0 {
		out = strings.Join(notes, "\n") + "\n\n" + out
	}
	return out
}

// describeScene renders the current story unit and its selectable choices.
func (g *game) describeScene() string {
	unit, err := g.session.CurrentScene()
	if err != nil {
		return "Error: " + err.Error()
	}
	var b strings.Builder
	for _, line := range unit.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	choices := g.session.SelectableChoices()
	if len(choices) > 0 {
		b.WriteString("\n")
	}
	for i, c := range choices {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *game) describeTime() string {
	res := g.session.DecodeClock()
	switch res.Status {
	case ecc.DoubleBitDetected:
		return "The clock shows garbage. Time is glitching."
	case ecc.SingleBitCorrected, ecc.OverallParityError:
		return fmt.Sprintf("Day %d, %s (the clock flickers)", clock.Day(res.Data), clock.Format(res.Data))
	}
	return fmt.Sprintf("Day %d, %s", clock.Day(res.Data), clock.Format(res.Data))
}

func (g *game) save(ctx context.Context) turn {
	snap := g.session.Snapshot()
	if err := g.store.SaveSnapshot(ctx, snap); err != nil {
		g.logger.Error("Save failed", "world_id", snap.ID, "error", err)
		return turn{Output: "Save failed: " + err.Error()}
	}
	g.logger.Info("Game saved", "world_id", snap.ID)
	return turn{Output: "Saved as " + snap.ID.String()}
}

func (g *game) listSaves(ctx context.Context) turn {
	ids, err := g.store.ListSnapshots(ctx)
	if err != nil {
		return turn{Output: "Error: " + err.Error()}
	}
	if len(ids) == 0 {
		return turn{Output: "No saved games."}
	}
	var b strings.Builder
	b.WriteString("Saved games:")
	for _, id := range ids {
		b.WriteString("\n  " + id.String())
	}
	return turn{Output: b.String()}
}

func (g *game) load(ctx context.Context, raw string) turn {
	id, err := uuid.Parse(raw)
	if err != nil {
		return turn{Output: fmt.Sprintf("%q is not a save id.", raw)}
	}
	if err := g.restore(ctx, id); err != nil {
		return turn{Output: err.Error()}
	}
	return turn{Output: g.describeScene()}
}

// restore loads a snapshot into the session.
func (g *game) restore(ctx context.Context, id uuid.UUID) error {
	snap, err := g.store.LoadSnapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("no saved game %s", id)
	}
	if err := g.session.Restore(snap); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	g.logger.Info("Game loaded", "world_id", id)
	return nil
}

func (g *game) copyScene() turn {
	if g.copyFn == nil {
		return turn{Output: "Clipboard is not available."}
	}
	if err := g.copyFn(g.describeScene()); err != nil {
		return turn{Output: "Copy failed: " + err.Error()}
	}
	return turn{Output: "Scene copied to clipboard."}
}
