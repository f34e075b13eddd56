package resource

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for keys the pool never issued.
var ErrNotFound = errors.New("resource: key not found")

// Key identifies a mesh in a Pool.
type Key uint32

// Pool owns registered meshes. Keys are handed out in increasing order and
// stay valid for the lifetime of the pool; many entities may share one key.
type Pool struct {
	meshes []*Mesh
}

// NewPool creates an empty mesh pool.
func NewPool() *Pool { return &Pool{} }

// Register stores m and returns its key.
func (p *Pool) Register(m Mesh) Key {
	p.meshes = append(p.meshes, &m)
	return Key(len(p.meshes) - 1)
}

// Lookup returns the mesh under k. The returned mesh must not be modified.
func (p *Pool) Lookup(k Key) (*Mesh, error) {
	if int(k) >= len(p.meshes) {
		return nil, fmt.Errorf("mesh %d: %w", k, ErrNotFound)
	}
	return p.meshes[k], nil
}

// Len returns the number of registered meshes.
func (p *Pool) Len() int { return len(p.meshes) }
