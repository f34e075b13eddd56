package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const collinearEps = 1e-9

func cross(a, b mgl64.Vec2) float64 { return a.X()*b.Y() - a.Y()*b.X() }

// signedArea is positive for counter-clockwise winding.
func signedArea(pts []mgl64.Vec2) float64 {
	var a float64
	for i := range pts {
		a += cross(pts[i], pts[(i+1)%len(pts)])
	}
	return a / 2
}

// checkConvex accepts simple convex polygons in either winding. Collinear
// runs are tolerated as long as the polygon keeps a non-zero area.
func checkConvex(pts []mgl64.Vec2) error {
	if len(pts) < 3 {
		return fmt.Errorf("%w: %d points", ErrDegeneratePolygon, len(pts))
	}
	for i, p := range pts {
		if math.IsNaN(p.X()) || math.IsNaN(p.Y()) || math.IsInf(p.X(), 0) || math.IsInf(p.Y(), 0) {
			return fmt.Errorf("%w: point %d is not finite", ErrDegeneratePolygon, i)
		}
	}
	n := len(pts)
	sign := 0
	turning := 0.0
	for i := range n {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		e1, e2 := b.Sub(a), c.Sub(b)
		z := cross(e1, e2)
		if math.Abs(z) < collinearEps {
			continue
		}
		s := 1
		if z < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return fmt.Errorf("%w: turns both ways at point %d", ErrDegeneratePolygon, (i+1)%n)
		}
		turning += math.Atan2(z, e1.Dot(e2))
	}
	if sign == 0 || math.Abs(signedArea(pts)) < collinearEps {
		return fmt.Errorf("%w: zero area", ErrDegeneratePolygon)
	}
	// A star polygon turns consistently but winds more than once.
	if math.Abs(turning) > 2*math.Pi+1e-6 {
		return fmt.Errorf("%w: self-intersecting", ErrDegeneratePolygon)
	}
	return nil
}

// Centroid returns the area centroid of a simple polygon, falling back to
// the vertex mean for zero-area input.
func Centroid(pts []mgl64.Vec2) mgl64.Vec2 {
	if len(pts) == 0 {
		return mgl64.Vec2{}
	}
	area := signedArea(pts)
	if math.Abs(area) < collinearEps {
		var sum mgl64.Vec2
		for _, p := range pts {
			sum = sum.Add(p)
		}
		return sum.Mul(1 / float64(len(pts)))
	}
	var cx, cy float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		f := cross(p, q)
		cx += (p.X() + q.X()) * f
		cy += (p.Y() + q.Y()) * f
	}
	return mgl64.Vec2{cx / (6 * area), cy / (6 * area)}
}
