// Package physics owns the rigid-body simulation. Entities refer to bodies
// and colliders only through the handles in component.Physics; nothing
// outside Engine touches Chipmunk state.
package physics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"fly/internal/arena"
	"fly/internal/component"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/logging"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

var (
	// ErrResourceExhausted is returned when no more bodies or colliders fit.
	ErrResourceExhausted = errors.New("physics: resource exhausted")
	// ErrDegeneratePolygon is returned by AddStaticPoly for point sets that
	// are not a convex polygon with non-zero area.
	ErrDegeneratePolygon = errors.New("physics: degenerate or non-convex polygon")
)

type body struct {
	*cp.Body
	static bool
}

// Engine wraps one simulation world. It has a single owner: ApplyCommands
// and StepAndSync must not run concurrently, and the caller orders them.
type Engine struct {
	space     *cp.Space
	bodies    *arena.Arena[body]
	colliders *arena.Arena[*cp.Shape]
	cfg       config.Physics
	substeps  int
	logger    *zap.Logger
}

// New creates an empty world with the configured gravity.
func New(cfg config.Physics, logger *zap.Logger) *Engine {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{X: cfg.Gravity.X, Y: cfg.Gravity.Y})
	substeps := cfg.Substeps
	if substeps <= 0 {
		substeps = 1
	}
	if cfg.Density <= 0 {
		cfg.Density = 1
	}
	return &Engine{
		space:     space,
		bodies:    arena.New[body](cfg.MaxBodies),
		colliders: arena.New[*cp.Shape](cfg.MaxBodies),
		cfg:       cfg,
		substeps:  substeps,
		logger:    logging.OrNop(logger).Named("physics"),
	}
}

func vec(v mgl64.Vec2) cp.Vector { return cp.Vector{X: v.X(), Y: v.Y()} }

func fromCP(v cp.Vector) mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

// attach registers a body and its collider with the world. Either both are
// stored or neither is.
func (e *Engine) attach(b body, shape *cp.Shape) (component.Physics, error) {
	bh, err := e.bodies.Insert(b)
	if err != nil {
		return component.Physics{}, fmt.Errorf("%w: body: %v", ErrResourceExhausted, err)
	}
	ch, err := e.colliders.Insert(shape)
	if err != nil {
		_, _ = e.bodies.Remove(bh)
		return component.Physics{}, fmt.Errorf("%w: collider: %v", ErrResourceExhausted, err)
	}
	shape.SetFriction(e.cfg.Friction)
	shape.SetElasticity(e.cfg.Elasticity)
	e.space.AddBody(b.Body)
	e.space.AddShape(shape)
	return component.Physics{Body: bh, Collider: ch}, nil
}

// AddStaticRect creates an immovable box centered on pos.
func (e *Engine) AddStaticRect(pos, halfExtents mgl64.Vec2) (component.Physics, error) {
	b := cp.NewStaticBody()
	b.SetPosition(vec(pos))
	shape := cp.NewBox(b, 2*halfExtents.X(), 2*halfExtents.Y(), 0)
	return e.attach(body{Body: b, static: true}, shape)
}

// AddStaticPoly creates an immovable convex polygon from world-space points.
// The body sits at the polygon's centroid, so the entity's transform reports
// the centroid once synced.
//
// Precondition: points describe a convex polygon with non-zero area;
// otherwise ErrDegeneratePolygon is returned.
func (e *Engine) AddStaticPoly(points []mgl64.Vec2) (component.Physics, error) {
	if err := checkConvex(points); err != nil {
		return component.Physics{}, err
	}
	center := Centroid(points)
	verts := make([]cp.Vector, len(points))
	for i, p := range points {
		verts[i] = vec(p.Sub(center))
	}
	b := cp.NewStaticBody()
	b.SetPosition(vec(center))
	shape := cp.NewPolyShape(b, len(verts), verts, cp.NewTransformIdentity(), 0)
	return e.attach(body{Body: b, static: true}, shape)
}

// AddBall creates a dynamic ball. Its mass is density times its area.
func (e *Engine) AddBall(pos mgl64.Vec2, radius float64) (component.Physics, error) {
	mass := e.cfg.Density * math.Pi * radius * radius
	b := cp.NewBody(mass, cp.MomentForCircle(mass, 0, radius, cp.Vector{}))
	b.SetPosition(vec(pos))
	shape := cp.NewCircle(b, radius, cp.Vector{})
	return e.attach(body{Body: b}, shape)
}

// ApplyCommands consumes the pending command of every physics component.
// Each command is reset to none whether or not it had an effect; unknown
// kinds are dropped. Errors for missing bodies are joined and returned
// after every command has been consumed.
func (e *Engine) ApplyCommands(w *ecs.World) error {
	var errs []error
	for id, p := range ecs.Query1[component.Physics](w) {
		if !p.Cmd.Pending() {
			continue
		}
		cmd := p.Cmd
		p.Cmd = component.Command{}

		switch cmd.Kind {
		case component.CmdLift:
			b, err := e.bodies.Get(p.Body)
			if err != nil {
				errs = append(errs, fmt.Errorf("%v %v: %w", cmd.Kind, id, err))
				continue
			}
			b.ApplyImpulseAtWorldPoint(cp.Vector{X: cmd.Amount, Y: cmd.Amount}, b.Position())
		default:
			e.logger.Debug("dropped command", zap.Stringer("entity", id), zap.Stringer("kind", cmd.Kind))
		}
	}
	return errors.Join(errs...)
}

// StepAndSync advances the world by dt and copies every body's pose into
// the matching entity's Transform.
func (e *Engine) StepAndSync(w *ecs.World, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("physics: invalid timestep %v", dt)
	}
	h := dt / float64(e.substeps)
	for range e.substeps {
		e.space.Step(h)
	}

	var errs []error
	for p, tr := range ecs.Query2[component.Physics, component.Transform](w) {
		b, err := e.bodies.Get(p.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync: %w", err))
			continue
		}
		tr.Pos = fromCP(b.Position())
		tr.Rot = b.Angle()
	}
	return errors.Join(errs...)
}

// Despawn removes id's collider, body and the entity itself.
func (e *Engine) Despawn(w *ecs.World, id ecs.EntityID) error {
	p, err := ecs.Get[component.Physics](w, id)
	if err != nil {
		return fmt.Errorf("despawn: %w", err)
	}
	// Both handles must resolve before anything is removed.
	shape, err := e.colliders.Get(p.Collider)
	if err != nil {
		return fmt.Errorf("despawn %v collider: %w", id, err)
	}
	b, err := e.bodies.Get(p.Body)
	if err != nil {
		return fmt.Errorf("despawn %v body: %w", id, err)
	}
	_, _ = e.colliders.Remove(p.Collider)
	_, _ = e.bodies.Remove(p.Body)
	e.space.RemoveShape(shape)
	e.space.RemoveBody(b.Body)
	w.DestroyEntity(id)
	return nil
}

// Pose returns the body's position and rotation.
func (e *Engine) Pose(p component.Physics) (mgl64.Vec2, float64, error) {
	b, err := e.bodies.Get(p.Body)
	if err != nil {
		return mgl64.Vec2{}, 0, err
	}
	return fromCP(b.Position()), b.Angle(), nil
}

// Velocity returns the body's linear velocity.
func (e *Engine) Velocity(p component.Physics) (mgl64.Vec2, error) {
	b, err := e.bodies.Get(p.Body)
	if err != nil {
		return mgl64.Vec2{}, err
	}
	return fromCP(b.Velocity()), nil
}

// Mass returns the body's mass. Static bodies report +Inf.
func (e *Engine) Mass(p component.Physics) (float64, error) {
	b, err := e.bodies.Get(p.Body)
	if err != nil {
		return 0, err
	}
	if b.static {
		return math.Inf(1), nil
	}
	return b.Mass(), nil
}

// IsStatic reports whether the body was created immovable.
func (e *Engine) IsStatic(p component.Physics) (bool, error) {
	b, err := e.bodies.Get(p.Body)
	if err != nil {
		return false, err
	}
	return b.static, nil
}

// Bodies returns the number of live bodies.
func (e *Engine) Bodies() int { return e.bodies.Len() }

// Digest hashes every body's position, angle and velocity in handle order.
// Two engines fed identical inputs produce identical digests.
func (e *Engine) Digest() uint64 {
	buf := make([]byte, 0, e.bodies.Len()*5*8)
	for _, b := range e.bodies.All() {
		pos, vel := b.Position(), b.Velocity()
		for _, f := range [...]float64{pos.X, pos.Y, b.Angle(), vel.X, vel.Y} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	return xxhash.Sum64(buf)
}
