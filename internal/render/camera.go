// Package render draws the world through a Camera onto a Surface.
//
// The camera keeps an ordered table of draw routines, one per registered
// appearance type. Each routine walks every entity that has both a
// component.Transform and its appearance and asks the appearance to draw
// itself. Registration order is draw order.
package render

import (
	"fmt"
	"reflect"

	"fly/internal/component"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/logging"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Appearance is a component that knows how to draw its entity.
type Appearance interface {
	ecs.Component
	Draw(t component.Transform, f *Frame) error
}

// Frame is what an appearance sees while drawing.
type Frame struct {
	Surface Surface
	Meshes  *resource.Pool
}

// DrawMesh looks up key and draws it at t. A tint other than
// tcell.ColorDefault replaces the mesh color for this draw only.
func (f *Frame) DrawMesh(key resource.Key, t component.Transform, tint tcell.Color) error {
	m, err := f.Meshes.Lookup(key)
	if err != nil {
		return err
	}
	if tint != tcell.ColorDefault && tint != m.Color {
		c := *m
		c.Color = tint
		m = &c
	}
	return f.Surface.DrawMesh(m, t.Model())
}

// DrawError reports the first failed draw of an aborted pass.
type DrawError struct {
	Type  string // appearance type name
	Index int    // position of the entity within its routine's pass
	Err   error
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("render: draw %s #%d: %v", e.Type, e.Index, e.Err)
}

func (e *DrawError) Unwrap() error { return e.Err }

type routine struct {
	name string
	draw func(w *ecs.World, f *Frame, fail func(name string, i int, err error) error) error
}

// Camera owns the draw routines and the global view transform.
type Camera struct {
	cfg      config.Camera
	bg       tcell.Color
	focus    mgl64.Vec2
	meshes   *resource.Pool
	routines []routine
	logger   *zap.Logger
}

// NewCamera creates a camera with no routines.
func NewCamera(cfg config.Camera, meshes *resource.Pool, logger *zap.Logger) *Camera {
	bg := cfg.BackgroundColor()
	if bg == tcell.ColorDefault {
		bg = tcell.ColorWhite
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	return &Camera{
		cfg:    cfg,
		bg:     bg,
		focus:  cfg.Focus.Vec(),
		meshes: meshes,
		logger: logging.OrNop(logger).Named("render"),
	}
}

// Register appends a draw routine for appearance type T. Registering the
// same type twice draws it twice.
func Register[T Appearance](c *Camera) {
	name := reflect.TypeFor[T]().Name()
	c.routines = append(c.routines, routine{
		name: name,
		draw: func(w *ecs.World, f *Frame, fail func(string, int, error) error) error {
			i := 0
			for tr, a := range ecs.Query2[component.Transform, T](w) {
				if err := (*a).Draw(*tr, f); err != nil {
					if err := fail(name, i, err); err != nil {
						return err
					}
				}
				i++
			}
			return nil
		},
	})
	c.logger.Debug("registered appearance", zap.String("type", name), zap.Int("routines", len(c.routines)))
}

// Routines returns the registered type names in draw order.
func (c *Camera) Routines() []string {
	names := make([]string, len(c.routines))
	for i, r := range c.routines {
		names[i] = r.name
	}
	return names
}

// Follow moves the point the view is locked to.
func (c *Camera) Follow(p mgl64.Vec2) { c.focus = p }

// Focus returns the point the view is locked to.
func (c *Camera) Focus() mgl64.Vec2 { return c.focus }

// View returns the world-to-surface transform for a w x h viewport. The focus
// lands on the viewport center, or on the bottom-left corner for the corner
// anchor (top-left when Y is not flipped).
func (c *Camera) View(w, h float64) mgl64.Mat3 {
	sx, sy := c.cfg.Scale, c.cfg.Scale
	if c.cfg.FlipY {
		sy = -sy
	}
	var ax, ay float64
	switch {
	case c.cfg.Anchor == config.AnchorCorner && c.cfg.FlipY:
		ax, ay = 0, h
	case c.cfg.Anchor == config.AnchorCorner:
		ax, ay = 0, 0
	default:
		ax, ay = w/2, h/2
	}
	return mgl64.Translate2D(ax, ay).
		Mul3(mgl64.Scale2D(sx, sy)).
		Mul3(mgl64.Translate2D(-c.focus.X(), -c.focus.Y()))
}

// Render draws one frame of w onto s: clear, push the view, run every
// routine in registration order, pop, present. Under the abort policy the
// first failed draw stops the pass and s is not presented.
func (c *Camera) Render(w *ecs.World, s Surface) error {
	s.Clear(c.bg)
	sw, sh := s.Size()
	s.PushTransform(c.View(sw, sh))

	f := &Frame{Surface: s, Meshes: c.meshes}
	for _, r := range c.routines {
		if err := r.draw(w, f, c.fail); err != nil {
			s.PopTransform()
			return err
		}
	}
	s.PopTransform()
	return s.Present()
}

func (c *Camera) fail(name string, i int, err error) error {
	if c.cfg.OnDrawError == config.DrawErrorSkip {
		c.logger.Warn("skipped draw", zap.String("type", name), zap.Int("index", i), zap.Error(err))
		return nil
	}
	return &DrawError{Type: name, Index: i, Err: err}
}
