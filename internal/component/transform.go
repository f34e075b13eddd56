package component

import (
	"fly/internal/ecs"

	"github.com/go-gl/mathgl/mgl64"
)

const CTransform ecs.ComponentType = 2

// Transform is the pose rendering reads each frame. Only the physics step
// writes it; the zero value (origin, no rotation) is what gets drawn before
// the first step.
type Transform struct {
	Pos mgl64.Vec2
	Rot float64 // radians, counter-clockwise
}

func (Transform) Type() ecs.ComponentType { return CTransform }

// Model returns the transform as a homogeneous 2D matrix: rotate, then translate.
func (t Transform) Model() mgl64.Mat3 {
	return mgl64.Translate2D(t.Pos.X(), t.Pos.Y()).Mul3(mgl64.HomogRotate2D(t.Rot))
}
