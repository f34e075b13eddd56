package ecs

import (
	"fmt"

	"fly/internal/arena"
)

// EntityID uniquely identifies an entity in the world. It packs a slot index
// and a generation, so the ID of a destroyed entity never names a later one.
type EntityID uint64

// NilEntity is the zero value; no valid entity has this ID.
const NilEntity EntityID = 0

func (id EntityID) handle() arena.Handle { return arena.Unpack(uint64(id)) }

func (id EntityID) String() string {
	if id == NilEntity {
		return "entity(nil)"
	}
	return fmt.Sprintf("entity(%v)", id.handle())
}

// ComponentType is a small integer key used to store/retrieve components.
type ComponentType uint8

// Component is implemented by every data struct stored in the world.
// Type must be declared on the value receiver; the zero value is used to
// resolve the store for generic lookups.
type Component interface {
	Type() ComponentType
}
