package scenario

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
)

func clockAt(hour, minute int) ecc.Result {
	return ecc.Decode(ecc.Encode(clock.At(2, hour, minute)))
}

func window(from, until int) *Access {
	return &Access{
		Kind:  AccessTimeWindow,
		From:  clock.TimeOfDay(clock.At(0, from, 0)),
		Until: clock.TimeOfDay(clock.At(0, until, 0)),
	}
}

func TestAccess_Evaluate(t *testing.T) {
	corrupted := ecc.Decode(ecc.Encode(clock.At(0, 18, 0)).Flip(4).Flip(7))

	tests := []struct {
		name     string
		access   *Access
		view     *stubView
		expected bool
	}{
		{"nil predicate", nil, &stubView{}, true},
		{"always", &Access{Kind: AccessAlways}, &stubView{}, true},
		{"has item present", &Access{Kind: AccessHasItem, Item: "key"}, &stubView{items: map[string]bool{"key": true}}, true},
		{"has item missing", &Access{Kind: AccessHasItem, Item: "key"}, &stubView{}, false},
		{"window open", window(17, 21), &stubView{clock: clockAt(18, 30)}, true},
		{"window opening edge", window(17, 21), &stubView{clock: clockAt(17, 0)}, true},
		{"window closing edge", window(17, 21), &stubView{clock: clockAt(21, 0)}, false},
		{"window closed", window(17, 21), &stubView{clock: clockAt(9, 0)}, false},
		{"overnight window late", window(22, 6), &stubView{clock: clockAt(23, 0)}, true},
		{"overnight window early", window(22, 6), &stubView{clock: clockAt(5, 59)}, true},
		{"overnight window midday", window(22, 6), &stubView{clock: clockAt(12, 0)}, false},
		{"window with corrupted clock", window(17, 21), &stubView{clock: corrupted}, false},
		{
			"sanity below",
			&Access{Kind: AccessSanityBelow, NPC: "mika", Sanity: schedule.Paranoid},
			&stubView{sanity: map[string]schedule.Sanity{"mika": schedule.Irritated}},
			true,
		},
		{
			"sanity at limit",
			&Access{Kind: AccessSanityBelow, NPC: "mika", Sanity: schedule.Paranoid},
			&stubView{sanity: map[string]schedule.Sanity{"mika": schedule.Paranoid}},
			false,
		},
		{"sanity unknown npc", &Access{Kind: AccessSanityBelow, NPC: "ghost", Sanity: schedule.Broken}, &stubView{}, false},
		{
			"any: item or window",
			&Access{Kind: AccessAny, Of: []Access{{Kind: AccessHasItem, Item: "key"}, *window(17, 21)}},
			&stubView{clock: clockAt(9, 0), items: map[string]bool{"key": true}},
			true,
		},
		{
			"all: item and window",
			&Access{Kind: AccessAll, Of: []Access{{Kind: AccessHasItem, Item: "key"}, *window(17, 21)}},
			&stubView{clock: clockAt(9, 0), items: map[string]bool{"key": true}},
			false,
		},
		{"empty any", &Access{Kind: AccessAny}, &stubView{}, false},
		{"empty all", &Access{Kind: AccessAll}, &stubView{}, true},
		{"unknown kind", &Access{Kind: "psychic"}, &stubView{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.access.Evaluate(tt.view); got != tt.expected {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestAccess_EvaluateIsPure(t *testing.T) {
	a := window(17, 21)
	v := &stubView{clock: clockAt(18, 0)}
	first := a.Evaluate(v)
	for i := 0; i < 10; i++ {
		if a.Evaluate(v) != first {
			t.Fatal("Evaluate returned different results for the same world state")
		}
	}
}

func TestLocationRegistry_FindAndShadow(t *testing.T) {
	reg, err := NewLocationRegistry(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(Location{ID: "hallway", Name: "Hallway"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(Location{ID: "hallway", Name: "Hallway (renovated)"}); err != nil {
		t.Fatal(err)
	}

	loc, ok := reg.Find("hallway")
	if !ok {
		t.Fatal("Expected hallway")
	}
	if loc.Name != "Hallway (renovated)" {
		t.Errorf("Expected the latest definition to shadow, got %q", loc.Name)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected both definitions to stay in the arena, got %d", reg.Len())
	}
	if _, ok := reg.Find("roof"); ok {
		t.Error("Expected roof to be absent")
	}
}

func TestLocationRegistry_Capacity(t *testing.T) {
	reg, err := NewLocationRegistry(16, keyedmap.WithHash(keyedmap.HashXX))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxLocations; i++ {
		if err := reg.Add(Location{ID: fmt.Sprintf("room_%d", i)}); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	err = reg.Add(Location{ID: "one_too_many"})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}
	if _, ok := reg.Find("one_too_many"); ok {
		t.Error("Rejected location must not be indexed")
	}
	if _, ok := reg.Find("room_0"); !ok {
		t.Error("Expected earlier locations to stay reachable")
	}
}

func TestLocationRegistry_AddConnectionAndPOI(t *testing.T) {
	reg, _ := NewLocationRegistry(8)
	_ = reg.Add(Location{ID: "hallway"})

	for i := 0; i < MaxConnections; i++ {
		if err := reg.AddConnection("hallway", Connection{Target: fmt.Sprintf("door_%d", i)}); err != nil {
			t.Fatalf("AddConnection %d: %v", i, err)
		}
	}
	if err := reg.AddConnection("hallway", Connection{Target: "extra"}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}
	if err := reg.AddConnection("attic", Connection{Target: "hallway"}); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Expected ErrLocationNotFound, got %v", err)
	}

	for i := 0; i < MaxPOIs; i++ {
		if err := reg.AddPOI("hallway", PointOfInterest{ID: fmt.Sprintf("poi_%d", i)}); err != nil {
			t.Fatalf("AddPOI %d: %v", i, err)
		}
	}
	if err := reg.AddPOI("hallway", PointOfInterest{ID: "extra"}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}

	loc, _ := reg.Find("hallway")
	if got := len(reg.ConnectionsFrom(loc)); got != MaxConnections {
		t.Errorf("Expected %d connections, got %d", MaxConnections, got)
	}
}

func TestCatalog_NewRegistry(t *testing.T) {
	c := mustParse(t, testCatalogJSON, FormatJSON)
	reg, err := c.NewRegistry(16)
	if err != nil {
		t.Fatal(err)
	}
	loc, ok := reg.Find("hallway")
	if !ok {
		t.Fatal("Expected hallway")
	}
	if loc.Name != "Hallway" {
		t.Errorf("Expected display name fallback, got %q", loc.Name)
	}

	_ = reg.AddConnection("hallway", Connection{Target: "kitchen"})
	if len(c.Locations[0].Connections) != 2 {
		t.Error("Registry mutations must not leak into the catalog")
	}

	if _, err := c.NewRegistry(0); !errors.Is(err, keyedmap.ErrInvalidBucketCount) {
		t.Errorf("Expected ErrInvalidBucketCount, got %v", err)
	}
}
