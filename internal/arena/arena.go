// Package arena provides dense, generation-checked slot storage.
//
// A Handle names one slot at one generation. Removing a value bumps the
// slot's generation, so handles kept past removal fail with ErrNotFound
// instead of aliasing whatever is stored in the slot next.
package arena

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

var (
	// ErrNotFound is returned for zero, stale or out-of-range handles.
	ErrNotFound = errors.New("arena: handle not found")
	// ErrExhausted is returned when the arena has reached its slot limit.
	ErrExhausted = errors.New("arena: capacity exhausted")
)

// Handle is an opaque reference into an Arena. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// Pack encodes h into a single integer (generation in the high word).
func (h Handle) Pack() uint64 { return uint64(h.gen)<<32 | uint64(h.index) }

// Unpack is the inverse of Pack.
func Unpack(v uint64) Handle { return Handle{index: uint32(v), gen: uint32(v >> 32)} }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Index returns the slot index. Only meaningful for diagnostics.
func (h Handle) Index() uint32 { return h.index }

func (h Handle) String() string { return fmt.Sprintf("%d@%d", h.index, h.gen) }

type slot[T any] struct {
	val      T
	gen      uint32 // bumped on every insert; handles at gen 0 are never issued
	occupied bool
}

// Arena stores values of type T addressed by Handle.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
	limit int
}

// New returns an Arena holding at most limit live values.
// A limit <= 0 means the index space (2^32-1 slots) is the only bound.
func New[T any](limit int) *Arena[T] {
	if limit <= 0 || limit > math.MaxUint32 {
		limit = math.MaxUint32
	}
	return &Arena[T]{limit: limit}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) (Handle, error) {
	if a.len >= a.limit {
		return Handle{}, ErrExhausted
	}
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.val = v
	s.occupied = true
	a.len++
	return Handle{index: idx, gen: s.gen}, nil
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], bool) {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.gen != h.gen {
		return nil, false
	}
	return s, true
}

// Get returns the value stored under h.
func (a *Arena[T]) Get(h Handle) (T, error) {
	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%v: %w", h, ErrNotFound)
	}
	return s.val, nil
}

// Contains reports whether h names a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.lookup(h)
	return ok
}

// Remove deletes the value under h and returns it.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%v: %w", h, ErrNotFound)
	}
	v := s.val
	var zero T
	s.val = zero
	s.occupied = false
	a.free = append(a.free, h.index)
	a.len--
	return v, nil
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.len }

// All yields live values in slot order.
func (a *Arena[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.occupied {
				continue
			}
			if !yield(Handle{index: uint32(i), gen: s.gen}, s.val) {
				return
			}
		}
	}
}
