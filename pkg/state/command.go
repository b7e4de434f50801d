package state

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdInventory CommandType = "inventory"
	CmdAreaScan  CommandType = "arls"
	CmdHelp      CommandType = "help"
	CmdNone      CommandType = "" // No command, used for fallback
)

// ParseCommand returns the command named by input, or CmdNone.
func ParseCommand(input string) CommandType {
	known := map[string]CommandType{
		"inventory": CmdInventory,
		"inv":       CmdInventory,
		"i":         CmdInventory,
		"arls":      CmdAreaScan,
		"help":      CmdHelp,
		"h":         CmdHelp,
	}
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return CmdNone
	}
	return known[trimmed]
}

// CommandResult is the outcome of a shell command.
type CommandResult struct {
	Handled bool   // True if the input was a recognized command
	Message string // Text to show the player
}

// TryHandleCommand runs a built-in command. Unrecognized input is returned
// unhandled so the caller can treat it as a choice or a connection.
func (s *Session) TryHandleCommand(input string) *CommandResult {
	switch ParseCommand(input) {
	case CmdInventory:
		return &CommandResult{Handled: true, Message: s.DescribeInventory()}
	case CmdAreaScan:
		return &CommandResult{Handled: true, Message: s.DescribeLocation()}
	case CmdHelp:
		return &CommandResult{Handled: true, Message: s.DescribeHelp()}
	default:
		return &CommandResult{Handled: false, Message: input}
	}
}

func (s *Session) itemName(id string) string {
	if item, ok := s.catalog.Item(id); ok && item.Name != "" {
		return item.Name
	}
	return id
}

// DescribeInventory lists the player's items with quantities.
func (s *Session) DescribeInventory() string {
	var b strings.Builder
	b.WriteString("--- Inventory ---\n")
	if len(s.World.Player.Inventory) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, it := range s.World.Player.Inventory {
		fmt.Fprintf(&b, "  - %s: %d\n", s.itemName(it.Item), it.Quantity)
	}
	b.WriteString("-----------------\n")
	return b.String()
}

// DescribeLocation is the area list scan: the current location, its points of
// interest, NPCs present and exits with their accessibility.
func (s *Session) DescribeLocation() string {
	var b strings.Builder
	b.WriteString("--- Area List Scan ---\n")
	loc, err := s.CurrentLocation()
	if err != nil {
		fmt.Fprintf(&b, "Error: Current location '%s' not found in map data.\n", s.World.Player.Location)
		b.WriteString("----------------------\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Location: %s\n", loc.Name)
	fmt.Fprintf(&b, "Description: %s\n", loc.Description)

	b.WriteString("\nPoints of Interest:\n")
	if len(loc.POIs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, p := range loc.POIs {
		fmt.Fprintf(&b, "  - %s\n", p.Name)
	}

	if npcs := s.NPCsAt(loc.ID); len(npcs) > 0 {
		b.WriteString("\nPresent:\n")
		for _, id := range npcs {
			name := id
			if def, ok := s.catalog.NPC(id); ok && def.Name != "" {
				name = def.Name
			}
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}

	b.WriteString("\nConnections:\n")
	conns := s.locations.ConnectionsFrom(loc)
	if len(conns) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, c := range conns {
		name := c.Target
		if target, ok := s.locations.Find(c.Target); ok {
			name = target.Name
		}
		status := ""
		if !s.IsConnectionAccessible(c) {
			status = " [locked]"
		}
		fmt.Fprintf(&b, "  %d. %s%s\n", i+1, name, status)
	}
	b.WriteString("----------------------\n")
	return b.String()
}

// DescribeHelp lists the unlocked commands.
func (s *Session) DescribeHelp() string {
	var b strings.Builder
	b.WriteString("--- Help ---\n")
	b.WriteString("Available commands:\n")
	for _, c := range s.World.Player.UnlockedCommands {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	b.WriteString("  - quit\n")
	b.WriteString("------------\n")
	return b.String()
}
