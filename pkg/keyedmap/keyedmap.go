// Package keyedmap is a string-keyed hash table with chained buckets.
//
// Two duplicate-key policies are supported and must be chosen explicitly:
// ModeReplace updates an existing key in place (used for world flags) and
// ModeShadow prepends a new node so the latest insert shadows older ones
// (used for the location index).
package keyedmap

import (
	"errors"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidBucketCount is returned by New when bucketCount <= 0.
var ErrInvalidBucketCount = errors.New("keyedmap: bucket count must be positive")

// Mode selects how Insert treats a key that is already present.
type Mode int

const (
	// ModeReplace overwrites the value of an existing key without adding a node.
	ModeReplace Mode = iota
	// ModeShadow always prepends a node; lookups see the most recent insert.
	ModeShadow
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// HashFunc maps a key to a bucket-independent hash value.
type HashFunc func(key string) uint64

// HashDJB2 is the classic multiplicative hash: h = h*33 + c, seeded with 5381.
func HashDJB2(key string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(key); i++ {
		h = h<<5 + h + uint64(key[i])
	}
	return h
}

// HashXX hashes keys with xxHash64.
func HashXX(key string) uint64 {
	return xxhash.Sum64String(key)
}

type node[V any] struct {
	key   string
	value V
	next  *node[V]
}

// Map is a chained hash table from string keys to V.
// A Map is not safe for concurrent use.
type Map[V any] struct {
	buckets []*node[V]
	mode    Mode
	hash    HashFunc
	nodes   int
}

// Option configures a Map.
type Option func(*options)

type options struct {
	hash HashFunc
}

// WithHash overrides the default djb2 hash.
func WithHash(h HashFunc) Option {
	return func(o *options) {
		if h != nil {
			o.hash = h
		}
	}
}

// New creates a map with a fixed number of buckets.
func New[V any](bucketCount int, mode Mode, opts ...Option) (*Map[V], error) {
	if bucketCount <= 0 {
		return nil, ErrInvalidBucketCount
	}
	o := options{hash: HashDJB2}
	for _, opt := range opts {
		opt(&o)
	}
	return &Map[V]{
		buckets: make([]*node[V], bucketCount),
		mode:    mode,
		hash:    o.hash,
	}, nil
}

func (m *Map[V]) index(key string) int {
	return int(m.hash(key) % uint64(len(m.buckets)))
}

// Insert stores value under key according to the map's Mode.
func (m *Map[V]) Insert(key string, value V) {
	if len(m.buckets) == 0 {
		return
	}
	i := m.index(key)

	if m.mode == ModeReplace {
		for n := m.buckets[i]; n != nil; n = n.next {
			if n.key == key {
				n.value = value
				return
			}
		}
	}

	m.buckets[i] = &node[V]{key: key, value: value, next: m.buckets[i]}
	m.nodes++
}

// Set is an alias for Insert, reading naturally for flag stores.
func (m *Map[V]) Set(key string, value V) {
	m.Insert(key, value)
}

// Get returns the value for key and whether it was found.
func (m *Map[V]) Get(key string) (V, bool) {
	var zero V
	if len(m.buckets) == 0 {
		return zero, false
	}
	for n := m.buckets[m.index(key)]; n != nil; n = n.next {
		if n.key == key {
			return n.value, true
		}
	}
	return zero, false
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of stored nodes, shadowed duplicates included.
func (m *Map[V]) Len() int {
	return m.nodes
}

// Mode returns the duplicate-key policy of the map.
func (m *Map[V]) Mode() Mode {
	return m.mode
}

// Keys returns the distinct keys in sorted order.
func (m *Map[V]) Keys() []string {
	seen := make(map[string]struct{}, m.nodes)
	keys := make([]string, 0, m.nodes)
	for _, head := range m.buckets {
		for n := head; n != nil; n = n.next {
			if _, dup := seen[n.key]; dup {
				continue
			}
			seen[n.key] = struct{}{}
			keys = append(keys, n.key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Range calls fn for each visible entry in sorted key order until fn returns false.
// Shadowed duplicates are skipped.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if !fn(k, v) {
			return
		}
	}
}

// Snapshot copies the visible entries into a Go map.
func (m *Map[V]) Snapshot() map[string]V {
	out := make(map[string]V, m.nodes)
	m.Range(func(k string, v V) bool {
		out[k] = v
		return true
	})
	return out
}

// Destroy releases every node. The map stays usable but empty.
func (m *Map[V]) Destroy() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.nodes = 0
}
