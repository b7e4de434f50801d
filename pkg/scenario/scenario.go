package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
	"gopkg.in/yaml.v3"
)

const (
	MaxItems   = 64
	MaxActions = 128

	DefaultStartLocation = "iwakura_upper_hallway"
	DefaultStartScene    = "SCENE_00_ENTRY"
)

// NPC is the catalog definition of a scheduled character.
type NPC struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Sanity   schedule.Sanity   `json:"sanity,omitempty" yaml:"sanity,omitempty"` // Initial tier
	Schedule schedule.Schedule `json:"schedule" yaml:"schedule"`
}

// Start describes the initial world state of a new game.
type Start struct {
	Location    string            `json:"location,omitempty" yaml:"location,omitempty"`
	Scene       string            `json:"scene,omitempty" yaml:"scene,omitempty"`
	CreditLevel int               `json:"credit_level,omitempty" yaml:"credit_level,omitempty"`
	Commands    []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	Flags       map[string]string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Catalog is the read-only content of a game: locations, items, actions, story
// units and NPCs. Lookup methods are valid after Load, Parse or Index.
type Catalog struct {
	Name      string      `json:"name" yaml:"name"`
	FileName  string      `json:"-" yaml:"-"`
	Start     Start       `json:"start" yaml:"start"`
	Locations []Location  `json:"locations" yaml:"locations"`
	Items     []Item      `json:"items,omitempty" yaml:"items,omitempty"`
	Actions   []Action    `json:"actions" yaml:"actions"`
	Scenes    []StoryUnit `json:"scenes" yaml:"scenes"`
	NPCs      []NPC       `json:"npcs,omitempty" yaml:"npcs,omitempty"`

	actions map[string]*Action
	items   map[string]*Item
	scenes  map[string]*StoryUnit
	npcs    map[string]*NPC
}

// Format names a catalog encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension. Anything other than
// .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a catalog and builds its lookup indexes.
func Parse(data []byte, format Format) (*Catalog, error) {
	var c Catalog
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal catalog yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal catalog json: %w", err)
		}
	}
	c.Index()
	return &c, nil
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	c.FileName = filepath.Base(path)
	return c, nil
}

// Index rebuilds the id lookups. Call it after mutating the catalog slices.
// When ids repeat, the first definition wins.
func (c *Catalog) Index() {
	c.actions = make(map[string]*Action, len(c.Actions))
	for i := range c.Actions {
		if _, ok := c.actions[c.Actions[i].ID]; !ok {
			c.actions[c.Actions[i].ID] = &c.Actions[i]
		}
	}
	c.items = make(map[string]*Item, len(c.Items))
	for i := range c.Items {
		if _, ok := c.items[c.Items[i].ID]; !ok {
			c.items[c.Items[i].ID] = &c.Items[i]
		}
	}
	c.scenes = make(map[string]*StoryUnit, len(c.Scenes))
	for i := range c.Scenes {
		if _, ok := c.scenes[c.Scenes[i].ID]; !ok {
			c.scenes[c.Scenes[i].ID] = &c.Scenes[i]
		}
	}
	c.npcs = make(map[string]*NPC, len(c.NPCs))
	for i := range c.NPCs {
		if _, ok := c.npcs[c.NPCs[i].ID]; !ok {
			c.npcs[c.NPCs[i].ID] = &c.NPCs[i]
		}
	}
}

func (c *Catalog) Action(id string) (*Action, bool) {
	a, ok := c.actions[id]
	return a, ok
}

func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *Catalog) Scene(id string) (*StoryUnit, bool) {
	s, ok := c.scenes[id]
	return s, ok
}

func (c *Catalog) NPC(id string) (*NPC, bool) {
	n, ok := c.npcs[id]
	return n, ok
}

// StartLocation returns the configured start location or the default.
func (c *Catalog) StartLocation() string {
	if c.Start.Location != "" {
		return c.Start.Location
	}
	return DefaultStartLocation
}

// StartScene returns the configured start scene or the default.
func (c *Catalog) StartScene() string {
	if c.Start.Scene != "" {
		return c.Start.Scene
	}
	return DefaultStartScene
}

// NewRegistry loads every catalog location into a fresh LocationRegistry.
func (c *Catalog) NewRegistry(bucketCount int, opts ...keyedmap.Option) (*LocationRegistry, error) {
	reg, err := NewLocationRegistry(bucketCount, opts...)
	if err != nil {
		return nil, err
	}
	for _, loc := range c.Locations {
		if loc.Name == "" {
			loc.Name = DisplayName(loc.ID)
		}
		if err := reg.Add(loc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
