// Package appearance holds the drawable tags attached to entities. Each one
// names a shared mesh; the camera dispatches on the concrete type.
package appearance

import (
	"fly/internal/component"
	"fly/internal/ecs"
	"fly/internal/render"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	CBall  ecs.ComponentType = 3
	CBlock ecs.ComponentType = 4
	CHull  ecs.ComponentType = 5
)

// Ball draws a circle mesh. When Spoke is set, a second mesh is drawn at
// SpokeAt along the ball's local X axis so rotation is visible.
type Ball struct {
	Mesh     resource.Key
	Tint     tcell.Color // ColorDefault keeps the mesh color
	Spoke    resource.Key
	SpokeAt  float64
	HasSpoke bool
}

func (Ball) Type() ecs.ComponentType { return CBall }

func (b Ball) Draw(t component.Transform, f *render.Frame) error {
	if err := f.DrawMesh(b.Mesh, t, b.Tint); err != nil {
		return err
	}
	if !b.HasSpoke {
		return nil
	}
	off := mgl64.Rotate2D(t.Rot).Mul2x1(mgl64.Vec2{b.SpokeAt, 0})
	return f.DrawMesh(b.Spoke, component.Transform{Pos: t.Pos.Add(off), Rot: t.Rot}, tcell.ColorDefault)
}

// Block draws a rectangle mesh, typically static ground.
type Block struct {
	Mesh resource.Key
}

func (Block) Type() ecs.ComponentType { return CBlock }

func (b Block) Draw(t component.Transform, f *render.Frame) error {
	return f.DrawMesh(b.Mesh, t, tcell.ColorDefault)
}

// Hull draws a polygon mesh whose points are relative to its centroid.
type Hull struct {
	Mesh resource.Key
}

func (Hull) Type() ecs.ComponentType { return CHull }

func (h Hull) Draw(t component.Transform, f *render.Frame) error {
	return f.DrawMesh(h.Mesh, t, tcell.ColorDefault)
}

// RegisterAll registers every appearance with cam. Static scenery is drawn
// first so balls stay on top.
func RegisterAll(cam *render.Camera) {
	render.Register[Block](cam)
	render.Register[Hull](cam)
	render.Register[Ball](cam)
}
