// Package factory spawns the scene's entities. A Kits value registers the
// meshes it needs once and hands out fully wired entities: a physics body,
// a zero Transform that the first step fills in, and an appearance.
package factory

import (
	"fmt"

	"fly/internal/appearance"
	"fly/internal/component"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/physics"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// Colors used by the kits.
var (
	PlayerColor = tcell.ColorOrangeRed
	BallColor   = tcell.ColorSteelBlue
	GroundColor = tcell.ColorDarkOliveGreen
	RampColor   = tcell.ColorSaddleBrown
	SpokeColor  = tcell.ColorBlack
)

const (
	playerGlyph = '@'
	spokeRadius = 0.3 // fraction of the ball radius
	spokeReach  = 0.6 // fraction of the ball radius
)

// Kits spawns entities into one world backed by one engine.
type Kits struct {
	engine *physics.Engine
	meshes *resource.Pool
	balls  map[ballKey]resource.Key
}

type ballKey struct {
	radius float64
	color  tcell.Color
}

// New creates kits that add meshes to meshes and bodies to engine.
func New(engine *physics.Engine, meshes *resource.Pool) *Kits {
	return &Kits{engine: engine, meshes: meshes, balls: make(map[ballKey]resource.Key)}
}

// ballMesh returns a circle mesh for radius, registering it on first use so
// balls of equal size share one mesh.
func (k *Kits) ballMesh(radius float64, color tcell.Color, glyph rune) resource.Key {
	bk := ballKey{radius: radius, color: color}
	if key, ok := k.balls[bk]; ok {
		return key
	}
	key := k.meshes.Register(resource.Circle(radius, color).WithGlyph(glyph))
	k.balls[bk] = key
	return key
}

func (k *Kits) ball(pos mgl64.Vec2, radius float64, mesh resource.Key) (component.Physics, appearance.Ball, error) {
	p, err := k.engine.AddBall(pos, radius)
	if err != nil {
		return component.Physics{}, appearance.Ball{}, err
	}
	spoke := k.ballMesh(radius*spokeRadius, SpokeColor, 0)
	return p, appearance.Ball{
		Mesh:     mesh,
		Spoke:    spoke,
		SpokeAt:  radius * spokeReach,
		HasSpoke: true,
	}, nil
}

// NewPlayer spawns the controlled ball.
func (k *Kits) NewPlayer(w *ecs.World, cfg config.Player) (ecs.EntityID, error) {
	mesh := k.ballMesh(cfg.Radius, PlayerColor, playerGlyph)
	p, a, err := k.ball(cfg.Pos.Vec(), cfg.Radius, mesh)
	if err != nil {
		return ecs.NilEntity, fmt.Errorf("player: %w", err)
	}
	return w.Create(p, component.Transform{}, a), nil
}

// NewBall spawns an uncontrolled dynamic ball.
func (k *Kits) NewBall(w *ecs.World, cfg config.Ball) (ecs.EntityID, error) {
	mesh := k.ballMesh(cfg.Radius, BallColor, 0)
	p, a, err := k.ball(cfg.Pos.Vec(), cfg.Radius, mesh)
	if err != nil {
		return ecs.NilEntity, fmt.Errorf("ball: %w", err)
	}
	return w.Create(p, component.Transform{}, a), nil
}

// NewGround spawns a static box.
func (k *Kits) NewGround(w *ecs.World, cfg config.Ground) (ecs.EntityID, error) {
	half := cfg.HalfExtents.Vec()
	p, err := k.engine.AddStaticRect(cfg.Pos.Vec(), half)
	if err != nil {
		return ecs.NilEntity, fmt.Errorf("ground: %w", err)
	}
	mesh := k.meshes.Register(resource.Rect(2*half.X(), 2*half.Y(), GroundColor))
	return w.Create(p, component.Transform{}, appearance.Block{Mesh: mesh}), nil
}

// NewRamp spawns a static convex polygon given in world coordinates. The
// mesh is stored relative to the centroid, where the body sits.
func (k *Kits) NewRamp(w *ecs.World, cfg config.Ramp) (ecs.EntityID, error) {
	pts := make([]mgl64.Vec2, len(cfg.Points))
	for i, p := range cfg.Points {
		pts[i] = p.Vec()
	}
	p, err := k.engine.AddStaticPoly(pts)
	if err != nil {
		return ecs.NilEntity, fmt.Errorf("ramp: %w", err)
	}
	center := physics.Centroid(pts)
	local := make([]mgl64.Vec2, len(pts))
	for i, q := range pts {
		local[i] = q.Sub(center)
	}
	mesh := k.meshes.Register(resource.Polygon(local, RampColor))
	return w.Create(p, component.Transform{}, appearance.Hull{Mesh: mesh}), nil
}

// NewScene spawns ground, ramps, balls and finally the player, whose ID is
// returned.
func (k *Kits) NewScene(w *ecs.World, cfg config.Scene) (ecs.EntityID, error) {
	if _, err := k.NewGround(w, cfg.Ground); err != nil {
		return ecs.NilEntity, err
	}
	for i, r := range cfg.Ramps {
		if _, err := k.NewRamp(w, r); err != nil {
			return ecs.NilEntity, fmt.Errorf("scene ramp %d: %w", i, err)
		}
	}
	for i, b := range cfg.Balls {
		if _, err := k.NewBall(w, b); err != nil {
			return ecs.NilEntity, fmt.Errorf("scene ball %d: %w", i, err)
		}
	}
	return k.NewPlayer(w, cfg.Player)
}
