// Package resource holds immutable drawable meshes shared by key.
package resource

import (
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind distinguishes mesh geometry.
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapePolygon
)

func (k ShapeKind) String() string {
	if k == ShapeCircle {
		return "circle"
	}
	return "polygon"
}

// Mesh is drawable geometry in model space, centered on the origin.
// A mesh is never modified after it is registered with a Pool.
type Mesh struct {
	Kind   ShapeKind
	Radius float64      // ShapeCircle only
	Points []mgl64.Vec2 // ShapePolygon only, in winding order
	Color  tcell.Color
	Glyph  rune // cell rune used by character surfaces; 0 means a full block
}

// Circle builds a filled circle mesh.
func Circle(radius float64, color tcell.Color) Mesh {
	return Mesh{Kind: ShapeCircle, Radius: radius, Color: color}
}

// Rect builds a filled w×h rectangle centered on the origin.
func Rect(w, h float64, color tcell.Color) Mesh {
	hw, hh := w/2, h/2
	return Polygon([]mgl64.Vec2{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}, color)
}

// Polygon builds a filled polygon mesh. The points are copied.
func Polygon(points []mgl64.Vec2, color tcell.Color) Mesh {
	pts := make([]mgl64.Vec2, len(points))
	copy(pts, points)
	return Mesh{Kind: ShapePolygon, Points: pts, Color: color}
}

// WithGlyph returns a copy of m drawn with glyph on character surfaces.
func (m Mesh) WithGlyph(glyph rune) Mesh {
	m.Glyph = glyph
	return m
}
