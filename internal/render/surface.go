package render

import (
	"errors"
	"math"

	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidGeometry is returned by surfaces for meshes they cannot draw.
var ErrInvalidGeometry = errors.New("render: invalid geometry")

// Surface receives the draw calls of one frame. Coordinates after all pushed
// transforms are surface pixels with the origin at the top-left corner.
type Surface interface {
	// Size returns the drawable area in surface pixels.
	Size() (w, h float64)
	Clear(bg tcell.Color)
	// PushTransform post-multiplies m onto the current transform.
	PushTransform(m mgl64.Mat3)
	PopTransform()
	// DrawMesh draws m with model transform model under the current transform.
	DrawMesh(m *resource.Mesh, model mgl64.Mat3) error
	Present() error
}

// transformStack is the push/pop bookkeeping shared by the surfaces here.
type transformStack struct {
	stack []mgl64.Mat3
}

func (s *transformStack) top() mgl64.Mat3 {
	if len(s.stack) == 0 {
		return mgl64.Ident3()
	}
	return s.stack[len(s.stack)-1]
}

func (s *transformStack) push(m mgl64.Mat3) { s.stack = append(s.stack, s.top().Mul3(m)) }

func (s *transformStack) pop() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *transformStack) reset() { s.stack = s.stack[:0] }

// apply maps a model-space point through m.
func apply(m mgl64.Mat3, p mgl64.Vec2) mgl64.Vec2 {
	return m.Mul3x1(p.Vec3(1)).Vec2()
}

// scaleOf returns the mean axis scale of m, used for circle radii.
func scaleOf(m mgl64.Mat3) float64 {
	sx := mgl64.Vec2{m.At(0, 0), m.At(1, 0)}.Len()
	sy := mgl64.Vec2{m.At(0, 1), m.At(1, 1)}.Len()
	return (sx + sy) / 2
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// validate rejects meshes no surface can draw.
func validate(m *resource.Mesh, full mgl64.Mat3) error {
	if m == nil {
		return ErrInvalidGeometry
	}
	for _, f := range full {
		if !finite(f) {
			return ErrInvalidGeometry
		}
	}
	switch m.Kind {
	case resource.ShapeCircle:
		if !(m.Radius > 0) || !finite(m.Radius) {
			return ErrInvalidGeometry
		}
	case resource.ShapePolygon:
		if len(m.Points) < 3 {
			return ErrInvalidGeometry
		}
		for _, p := range m.Points {
			if !finite(p.X()) || !finite(p.Y()) {
				return ErrInvalidGeometry
			}
		}
	default:
		return ErrInvalidGeometry
	}
	return nil
}

// Multi fans every call out to several surfaces. Size reports the first.
func Multi(surfaces ...Surface) Surface { return multi(surfaces) }

type multi []Surface

func (m multi) Size() (float64, float64) {
	if len(m) == 0 {
		return 0, 0
	}
	return m[0].Size()
}

func (m multi) Clear(bg tcell.Color) {
	for _, s := range m {
		s.Clear(bg)
	}
}

func (m multi) PushTransform(t mgl64.Mat3) {
	for _, s := range m {
		s.PushTransform(t)
	}
}

func (m multi) PopTransform() {
	for _, s := range m {
		s.PopTransform()
	}
}

func (m multi) DrawMesh(mesh *resource.Mesh, model mgl64.Mat3) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.DrawMesh(mesh, model))
	}
	return errors.Join(errs...)
}

func (m multi) Present() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Present())
	}
	return errors.Join(errs...)
}
