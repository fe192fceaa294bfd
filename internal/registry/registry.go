// Package registry provides an insertion-ordered table from caller keys to values.
//
// Every key is assigned a dense position 0..n-1 the first time it is set.
// Setting an existing key replaces its value in place; positions never move
// and entries are never removed. Spatial indexes are built over Values() and
// report positions, which KeyAt maps back to keys.
//
// A Registry is not safe for concurrent mutation. Callers that publish it to
// readers must Clone before mutating.
package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when a key has never been set.
	ErrUnknownKey = errors.New("unknown key")

	// ErrIndexOutOfRange is returned for positions outside 0..Len()-1.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Registry maps keys to values, preserving first-insertion order.
type Registry[K comparable, V any] struct {
	pos    map[K]int
	keys   []K
	values []V
}

// New returns an empty registry with room for capacity entries.
func New[K comparable, V any](capacity int) *Registry[K, V] {
	return &Registry[K, V]{
		pos:    make(map[K]int, capacity),
		keys:   make([]K, 0, capacity),
		values: make([]V, 0, capacity),
	}
}

// Set inserts key at the next position or replaces its value in place.
// It returns the position of key and whether the key was new.
func (r *Registry[K, V]) Set(key K, value V) (int, bool) {
	if i, ok := r.pos[key]; ok {
		r.values[i] = value
		return i, false
	}

	i := len(r.keys)
	r.pos[key] = i
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
	return i, true
}

// Get returns the value stored for key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	i, ok := r.pos[key]
	if !ok {
		var zero V
		return zero, false
	}
	return r.values[i], true
}

// Position returns the dense position of key.
func (r *Registry[K, V]) Position(key K) (int, error) {
	i, ok := r.pos[key]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownKey, key)
	}
	return i, nil
}

// KeyAt returns the key stored at position i.
func (r *Registry[K, V]) KeyAt(i int) (K, error) {
	if i < 0 || i >= len(r.keys) {
		var zero K
		return zero, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(r.keys))
	}
	return r.keys[i], nil
}

// ValueAt returns the value stored at position i.
func (r *Registry[K, V]) ValueAt(i int) (V, error) {
	if i < 0 || i >= len(r.values) {
		var zero V
		return zero, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(r.values))
	}
	return r.values[i], nil
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int { return len(r.keys) }

// Keys returns the keys in position order. The slice must not be modified.
func (r *Registry[K, V]) Keys() []K { return r.keys }

// Values returns the values in position order. The slice must not be modified.
func (r *Registry[K, V]) Values() []V { return r.values }

// Clone returns an independent copy with spare capacity for extra entries.
func (r *Registry[K, V]) Clone(extra int) *Registry[K, V] {
	n := len(r.keys)
	c := &Registry[K, V]{
		pos:    make(map[K]int, n+extra),
		keys:   make([]K, n, n+extra),
		values: make([]V, n, n+extra),
	}
	copy(c.keys, r.keys)
	copy(c.values, r.values)
	for k, i := range r.pos {
		c.pos[k] = i
	}
	return c
}
