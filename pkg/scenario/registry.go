package scenario

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
)

// MaxLocations is the capacity of a LocationRegistry.
const MaxLocations = 64

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrLocationNotFound = errors.New("location not found")
)

// LocationRegistry owns every Location in a fixed-capacity arena. The index maps
// location ids to arena slots and never holds location data itself.
type LocationRegistry struct {
	arena []Location
	index *keyedmap.Map[int]
}

// NewLocationRegistry creates an empty registry whose index uses bucketCount buckets.
func NewLocationRegistry(bucketCount int, opts ...keyedmap.Option) (*LocationRegistry, error) {
	idx, err := keyedmap.New[int](bucketCount, keyedmap.ModeShadow, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create location index: %w", err)
	}
	return &LocationRegistry{
		arena: make([]Location, 0, MaxLocations),
		index: idx,
	}, nil
}

// Add copies loc into the arena and indexes it. A repeated id shadows the
// earlier slot in the index; both stay in the arena.
func (r *LocationRegistry) Add(loc Location) error {
	if len(r.arena) >= MaxLocations {
		return fmt.Errorf("location %q: %w (max %d)", loc.ID, ErrCapacityExceeded, MaxLocations)
	}
	if len(loc.Connections) > MaxConnections {
		return fmt.Errorf("location %q connections: %w (max %d)", loc.ID, ErrCapacityExceeded, MaxConnections)
	}
	if len(loc.POIs) > MaxPOIs {
		return fmt.Errorf("location %q points of interest: %w (max %d)", loc.ID, ErrCapacityExceeded, MaxPOIs)
	}
	loc.POIs = slices.Clone(loc.POIs)
	loc.Connections = slices.Clone(loc.Connections)
	r.arena = append(r.arena, loc)
	r.index.Insert(loc.ID, len(r.arena)-1)
	return nil
}

// Find returns the location with the given id. The pointer refers into the
// arena and stays valid for the life of the registry.
func (r *LocationRegistry) Find(id string) (*Location, bool) {
	slot, ok := r.index.Get(id)
	if !ok {
		return nil, false
	}
	return &r.arena[slot], true
}

// ConnectionsFrom returns the exits of a location.
func (r *LocationRegistry) ConnectionsFrom(loc *Location) []Connection {
	if loc == nil {
		return nil
	}
	return loc.Connections
}

// AddConnection appends an exit to an existing location.
func (r *LocationRegistry) AddConnection(id string, c Connection) error {
	loc, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}
	if len(loc.Connections) >= MaxConnections {
		return fmt.Errorf("location %q connections: %w (max %d)", id, ErrCapacityExceeded, MaxConnections)
	}
	loc.Connections = append(loc.Connections, c)
	return nil
}

// AddPOI appends a point of interest to an existing location.
func (r *LocationRegistry) AddPOI(id string, p PointOfInterest) error {
	loc, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}
	if len(loc.POIs) >= MaxPOIs {
		return fmt.Errorf("location %q points of interest: %w (max %d)", id, ErrCapacityExceeded, MaxPOIs)
	}
	loc.POIs = append(loc.POIs, p)
	return nil
}

// Len returns the number of arena slots in use.
func (r *LocationRegistry) Len() int {
	return len(r.arena)
}

// IDs returns the distinct indexed location ids in sorted order.
func (r *LocationRegistry) IDs() []string {
	return r.index.Keys()
}
