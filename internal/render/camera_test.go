package render

import (
	"errors"
	"testing"

	"fly/internal/component"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cRed  ecs.ComponentType = 200
	cBlue ecs.ComponentType = 201
)

var errBroken = errors.New("broken")

type red struct {
	Mesh   resource.Key
	Broken bool
}

func (red) Type() ecs.ComponentType { return cRed }

func (r red) Draw(t component.Transform, f *Frame) error {
	if r.Broken {
		return errBroken
	}
	return f.DrawMesh(r.Mesh, t, tcell.ColorDefault)
}

type blue struct{ Mesh resource.Key }

func (blue) Type() ecs.ComponentType { return cBlue }

func (b blue) Draw(t component.Transform, f *Frame) error {
	return f.DrawMesh(b.Mesh, t, tcell.ColorBlue)
}

func testCamera(policy string) (*Camera, resource.Key, resource.Key) {
	pool := resource.NewPool()
	dot := pool.Register(resource.Circle(1, tcell.ColorRed))
	sq := pool.Register(resource.Rect(2, 2, tcell.ColorGreen))
	cfg := config.Default().Camera
	cfg.OnDrawError = policy
	return NewCamera(cfg, pool, nil), dot, sq
}

func spawn(w *ecs.World, x float64, c ecs.Component) ecs.EntityID {
	return w.Create(component.Transform{Pos: mgl64.Vec2{x, 0}}, c)
}

func TestRegistrationOrderIsDrawOrder(t *testing.T) {
	cam, dot, sq := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 1, red{Mesh: dot})
	spawn(w, 2, blue{Mesh: sq})
	spawn(w, 3, red{Mesh: dot})

	Register[blue](cam)
	Register[red](cam)
	assert.Equal(t, []string{"blue", "red"}, cam.Routines())

	rec := NewRecorder(100, 100)
	require.NoError(t, cam.Render(w, rec))

	var shapes []string
	for _, op := range rec.Draws() {
		shapes = append(shapes, op.Shape)
	}
	assert.Equal(t, []string{"polygon", "circle", "circle"}, shapes)
	assert.Equal(t, 1, rec.Presented)
	assert.Equal(t, OpClear, rec.Ops[0].Kind)
	assert.Equal(t, OpPush, rec.Ops[1].Kind)
	assert.Equal(t, OpPop, rec.Ops[len(rec.Ops)-2].Kind)
	assert.Equal(t, OpPresent, rec.Ops[len(rec.Ops)-1].Kind)
}

func TestRegisterTwiceDrawsTwice(t *testing.T) {
	cam, dot, _ := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 0, red{Mesh: dot})
	Register[red](cam)
	Register[red](cam)

	rec := NewRecorder(10, 10)
	require.NoError(t, cam.Render(w, rec))
	assert.Len(t, rec.Draws(), 2)
}

func TestTintOverridesMeshColor(t *testing.T) {
	cam, _, sq := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 0, blue{Mesh: sq})
	Register[blue](cam)

	rec := NewRecorder(10, 10)
	require.NoError(t, cam.Render(w, rec))
	require.Len(t, rec.Draws(), 1)
	assert.Equal(t, tcell.ColorBlue, rec.Draws()[0].Mesh.Color)

	m, err := cam.meshes.Lookup(sq)
	require.NoError(t, err)
	assert.Equal(t, tcell.ColorGreen, m.Color, "pooled mesh is not modified")
}

func TestAbortPolicyStopsPass(t *testing.T) {
	cam, dot, sq := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 0, red{Mesh: dot})
	spawn(w, 1, red{Mesh: dot, Broken: true})
	spawn(w, 2, red{Mesh: dot})
	spawn(w, 3, blue{Mesh: sq})
	Register[red](cam)
	Register[blue](cam)

	rec := NewRecorder(10, 10)
	err := cam.Render(w, rec)
	require.Error(t, err)

	var de *DrawError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "red", de.Type)
	assert.Equal(t, 1, de.Index)
	assert.ErrorIs(t, err, errBroken)

	assert.Len(t, rec.Draws(), 1, "nothing drawn after the failure")
	assert.Equal(t, 0, rec.Presented)
	assert.Equal(t, OpPop, rec.Ops[len(rec.Ops)-1].Kind, "transform is still popped")
	assert.Equal(t, []string{"red", "blue"}, cam.Routines())
}

func TestSkipPolicyCompletesFrame(t *testing.T) {
	cam, dot, sq := testCamera(config.DrawErrorSkip)
	w := ecs.NewWorld()
	spawn(w, 0, red{Mesh: dot})
	spawn(w, 1, red{Mesh: dot, Broken: true})
	spawn(w, 3, blue{Mesh: sq})
	Register[red](cam)
	Register[blue](cam)

	rec := NewRecorder(10, 10)
	require.NoError(t, cam.Render(w, rec))
	assert.Len(t, rec.Draws(), 2)
	assert.Equal(t, 1, rec.Presented)
}

func TestMissingMeshIsInvariantError(t *testing.T) {
	cam, _, _ := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 0, red{Mesh: 42})
	Register[red](cam)

	err := cam.Render(w, NewRecorder(10, 10))
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestEntitiesWithoutTransformAreNotDrawn(t *testing.T) {
	cam, dot, _ := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	w.Create(red{Mesh: dot})
	Register[red](cam)

	rec := NewRecorder(10, 10)
	require.NoError(t, cam.Render(w, rec))
	assert.Empty(t, rec.Draws())
}

func assertVec(t *testing.T, want, got mgl64.Vec2, msg ...any) {
	t.Helper()
	assert.InDelta(t, want.X(), got.X(), 1e-9, msg...)
	assert.InDelta(t, want.Y(), got.Y(), 1e-9, msg...)
}

func TestViewCenterAnchor(t *testing.T) {
	cfg := config.Default().Camera
	cfg.Scale = 2
	cfg.FlipY = true
	cfg.Anchor = config.AnchorCenter
	cfg.Focus = config.Point{X: 10, Y: 20}
	cam := NewCamera(cfg, resource.NewPool(), nil)

	v := cam.View(200, 100)
	assertVec(t, mgl64.Vec2{100, 50}, apply(v, mgl64.Vec2{10, 20}))
	assertVec(t, mgl64.Vec2{102, 48}, apply(v, mgl64.Vec2{11, 21}), "world up is surface up")

	cam.Follow(mgl64.Vec2{0, 0})
	assertVec(t, mgl64.Vec2{100, 50}, apply(cam.View(200, 100), mgl64.Vec2{}))
}

func TestViewCornerAnchor(t *testing.T) {
	cfg := config.Default().Camera
	cfg.Scale = 1
	cfg.Anchor = config.AnchorCorner
	cfg.Focus = config.Point{}

	cfg.FlipY = true
	v := NewCamera(cfg, resource.NewPool(), nil).View(200, 100)
	assertVec(t, mgl64.Vec2{0, 100}, apply(v, mgl64.Vec2{}))

	cfg.FlipY = false
	v = NewCamera(cfg, resource.NewPool(), nil).View(200, 100)
	assertVec(t, mgl64.Vec2{5, 5}, apply(v, mgl64.Vec2{5, 5}))
}

func TestMultiFansOut(t *testing.T) {
	cam, dot, _ := testCamera(config.DrawErrorAbort)
	w := ecs.NewWorld()
	spawn(w, 0, red{Mesh: dot})
	Register[red](cam)

	a, b := NewRecorder(10, 10), NewRecorder(50, 50)
	require.NoError(t, cam.Render(w, Multi(a, b)))
	assert.Len(t, a.Draws(), 1)
	assert.Len(t, b.Draws(), 1)
	assert.Equal(t, 1, b.Presented)
	// The view is computed from the first surface's size.
	assert.Equal(t, a.Draws()[0].Center, b.Draws()[0].Center)
}

func TestRecorderRejectsInvalidGeometry(t *testing.T) {
	rec := NewRecorder(10, 10)
	err := rec.DrawMesh(&resource.Mesh{Kind: resource.ShapeCircle}, mgl64.Ident3())
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Empty(t, rec.Draws())
}
