package ecs

import (
	"fmt"
	"iter"
	"slices"
)

func typeOf[T Component]() ComponentType {
	var zero T
	return zero.Type()
}

// cast unboxes a stored component. Two Go types sharing one ComponentType is
// a registration bug, not a runtime condition.
func cast[T Component](v any) *T {
	p, ok := v.(*T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("ecs: component type %d holds %T, not *%T", zero.Type(), v, zero))
	}
	return p
}

// Get returns a mutable reference to entity id's component of type T.
// The error wraps ErrNotFound when the entity is dead or lacks T.
func Get[T Component](w *World, id EntityID) (*T, error) {
	t := typeOf[T]()
	if !w.Alive(id) {
		return nil, fmt.Errorf("%v: %w", id, ErrNotFound)
	}
	s := w.components[t]
	if s == nil {
		return nil, fmt.Errorf("%v: component %d: %w", id, t, ErrNotFound)
	}
	v, ok := s.get(id)
	if !ok {
		return nil, fmt.Errorf("%v: component %d: %w", id, t, ErrNotFound)
	}
	return cast[T](v), nil
}

// MustGet is Get for callers that treat a miss as a broken invariant.
func MustGet[T Component](w *World, id EntityID) *T {
	c, err := Get[T](w, id)
	if err != nil {
		panic(fmt.Sprintf("ecs: invariant violated: %v", err))
	}
	return c
}

// snapshot returns the lead store's IDs for a query over types. Iterating a
// copy means entities added mid-query are not visited and no ID repeats.
func (w *World) snapshot(types ...ComponentType) []EntityID {
	lead := w.lead(types...)
	if lead == nil {
		return nil
	}
	return slices.Clone(lead.ids)
}

// Query1 yields every entity with a T and a mutable reference to it.
func Query1[A Component](w *World) iter.Seq2[EntityID, *A] {
	ta := typeOf[A]()
	return func(yield func(EntityID, *A) bool) {
		for _, id := range w.snapshot(ta) {
			va, ok := w.components[ta].get(id)
			if !ok {
				continue // removed during iteration
			}
			if !yield(id, cast[A](va)) {
				return
			}
		}
	}
}

// Query2 yields mutable references for every entity having both A and B.
func Query2[A, B Component](w *World) iter.Seq2[*A, *B] {
	ta, tb := typeOf[A](), typeOf[B]()
	return func(yield func(*A, *B) bool) {
		for _, id := range w.snapshot(ta, tb) {
			va, ok := w.components[ta].get(id)
			if !ok {
				continue
			}
			vb, ok := w.components[tb].get(id)
			if !ok {
				continue
			}
			if !yield(cast[A](va), cast[B](vb)) {
				return
			}
		}
	}
}

// Query3 yields mutable references for every entity having A, B and C.
// Range statements bind at most two values, so call it with a yield func.
func Query3[A, B, C Component](w *World) func(yield func(*A, *B, *C) bool) {
	ta, tb, tc := typeOf[A](), typeOf[B](), typeOf[C]()
	return func(yield func(*A, *B, *C) bool) {
		for _, id := range w.snapshot(ta, tb, tc) {
			va, ok := w.components[ta].get(id)
			if !ok {
				continue
			}
			vb, ok := w.components[tb].get(id)
			if !ok {
				continue
			}
			vc, ok := w.components[tc].get(id)
			if !ok {
				continue
			}
			if !yield(cast[A](va), cast[B](vb), cast[C](vc)) {
				return
			}
		}
	}
}
