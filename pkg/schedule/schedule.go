// Package schedule places NPCs on the location graph from the in-game clock and
// their sanity tier.
package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/wired-engine/pkg/clock"
)

// OffMap is the placement used when no location can be determined.
const OffMap = "off_map"

// Sanity is an ordered severity level.
type Sanity int

const (
	Normal Sanity = iota
	Irritated
	Paranoid
	Broken
)

var sanityNames = []string{"normal", "irritated", "paranoid", "broken"}

func (s Sanity) String() string {
	if s >= Normal && int(s) < len(sanityNames) {
		return sanityNames[s]
	}
	return "sanity(" + strconv.Itoa(int(s)) + ")"
}

// ParseSanity accepts a tier name or its numeric level.
func ParseSanity(s string) (Sanity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range sanityNames {
		if n == s {
			return Sanity(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return Sanity(n), nil
	}
	return Normal, fmt.Errorf("unknown sanity level %q", s)
}

// UnmarshalJSON accepts either a number or a tier name.
func (s *Sanity) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Sanity(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("sanity: not a number or string: %s", string(data))
	}
	v, err := ParseSanity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalText lets YAML documents use tier names.
func (s *Sanity) UnmarshalText(text []byte) error {
	v, err := ParseSanity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Entry binds a location to the interval starting at Start.
type Entry struct {
	Start    clock.TimeOfDay `json:"start" yaml:"start"`
	Location string          `json:"location" yaml:"location"`
}

// Table is an ordered sequence of entries, earliest first.
type Table []Entry

// Lookup returns the location of the last entry whose start is <= timeInDay.
// Entries are scanned from the end so that, for equal start times, the later
// entry wins. ok is false when timeInDay precedes every entry.
func (t Table) Lookup(timeInDay uint32) (string, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if timeInDay >= t[i].Start.Units() {
			return t[i].Location, true
		}
	}
	return "", false
}

// Schedule is one NPC's placement rules.
type Schedule struct {
	Normal   Table  `json:"normal" yaml:"normal"`
	Paranoid Table  `json:"paranoid,omitempty" yaml:"paranoid,omitempty"`
	SafeRoom string `json:"safe_room" yaml:"safe_room"`
}

// Resolve returns where the NPC should be at timeInDay for the given tier.
// Broken pins the NPC to the safe room. Paranoid uses its own table; lower
// tiers share the normal one.
func (s *Schedule) Resolve(timeInDay uint32, sanity Sanity) string {
	if s == nil {
		return OffMap
	}
	if sanity >= Broken {
		return s.SafeRoom
	}
	table := s.Normal
	if sanity == Paranoid {
		table = s.Paranoid
	}
	if loc, ok := table.Lookup(clock.InDay(timeInDay)); ok {
		return loc
	}
	return OffMap
}
