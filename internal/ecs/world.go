package ecs

import (
	"errors"
	"fmt"
	"reflect"

	"fly/internal/arena"
)

// ErrNotFound is returned when an entity is dead or lacks the requested component.
var ErrNotFound = errors.New("ecs: not found")

// store holds every component of one type. Values are boxed pointers so
// callers can mutate them in place; ids keeps insertion order for iteration.
type store struct {
	index  map[EntityID]int
	ids    []EntityID
	values []any
}

func newStore() *store {
	return &store{index: make(map[EntityID]int)}
}

func (s *store) put(id EntityID, v any) {
	if i, ok := s.index[id]; ok {
		s.values[i] = v
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.values = append(s.values, v)
}

func (s *store) get(id EntityID) (any, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.values[i], true
}

// del removes id while keeping the remaining entries in insertion order.
func (s *store) del(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	copy(s.ids[i:], s.ids[i+1:])
	copy(s.values[i:], s.values[i+1:])
	s.ids = s.ids[:len(s.ids)-1]
	s.values[len(s.values)-1] = nil
	s.values = s.values[:len(s.values)-1]
	for j := i; j < len(s.ids); j++ {
		s.index[s.ids[j]] = j
	}
}

func (s *store) len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// World is the central entity registry and component store.
// It is not safe for concurrent use; callers serialize access per tick.
type World struct {
	entities   *arena.Arena[struct{}]
	components map[ComponentType]*store
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{
		entities:   arena.New[struct{}](0),
		components: make(map[ComponentType]*store),
	}
}

// CreateEntity mints a new entity ID and marks it alive.
func (w *World) CreateEntity() EntityID {
	h, err := w.entities.Insert(struct{}{})
	if err != nil {
		panic(fmt.Sprintf("ecs: create entity: %v", err))
	}
	return EntityID(h.Pack())
}

// Create mints an entity and attaches the given components to it.
func (w *World) Create(cs ...Component) EntityID {
	id := w.CreateEntity()
	for _, c := range cs {
		w.Add(id, c)
	}
	return id
}

// DestroyEntity marks the entity dead and removes all its components.
func (w *World) DestroyEntity(id EntityID) {
	if !w.Alive(id) {
		return
	}
	for _, s := range w.components {
		s.del(id)
	}
	_, _ = w.entities.Remove(id.handle())
}

// Alive reports whether the entity is alive.
func (w *World) Alive(id EntityID) bool {
	return w.entities.Contains(id.handle())
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.entities.Len() }

// Add attaches a component to an entity, replacing any component of the
// same type. Components must be passed by value. Adding to a dead entity
// is a no-op.
func (w *World) Add(id EntityID, c Component) {
	if !w.Alive(id) || c == nil {
		return
	}
	t := c.Type()
	s := w.components[t]
	if s == nil {
		s = newStore()
		w.components[t] = s
	}
	p := reflect.New(reflect.TypeOf(c))
	p.Elem().Set(reflect.ValueOf(c))
	s.put(id, p.Interface())
}

// Get returns a copy of the component of the given type for entity id, or nil.
func (w *World) Get(id EntityID, t ComponentType) Component {
	if !w.Alive(id) {
		return nil
	}
	s := w.components[t]
	if s == nil {
		return nil
	}
	v, ok := s.get(id)
	if !ok {
		return nil
	}
	return reflect.ValueOf(v).Elem().Interface().(Component)
}

// Remove detaches a component from an entity.
func (w *World) Remove(id EntityID, t ComponentType) {
	if s := w.components[t]; s != nil {
		s.del(id)
	}
}

// Has reports whether entity id has a component of the given type.
func (w *World) Has(id EntityID, t ComponentType) bool {
	if !w.Alive(id) {
		return false
	}
	s := w.components[t]
	if s == nil {
		return false
	}
	_, ok := s.get(id)
	return ok
}

// Query returns all alive entities that have every listed component type,
// in insertion order of the smallest matching store.
func (w *World) Query(types ...ComponentType) []EntityID {
	lead := w.lead(types...)
	if lead == nil {
		return nil
	}
	var result []EntityID
	for _, id := range lead.ids {
		if w.hasAll(id, types) {
			result = append(result, id)
		}
	}
	return result
}

// lead picks the smallest store among types, or nil if any is empty.
func (w *World) lead(types ...ComponentType) *store {
	if len(types) == 0 {
		return nil
	}
	var smallest *store
	for _, t := range types {
		s := w.components[t]
		if s.len() == 0 {
			return nil
		}
		if smallest == nil || s.len() < smallest.len() {
			smallest = s
		}
	}
	return smallest
}

func (w *World) hasAll(id EntityID, types []ComponentType) bool {
	for _, t := range types {
		if _, ok := w.components[t].get(id); !ok {
			return false
		}
	}
	return true
}
