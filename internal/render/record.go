package render

import (
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// OpKind names a recorded surface call.
type OpKind string

const (
	OpClear   OpKind = "clear"
	OpPush    OpKind = "push"
	OpPop     OpKind = "pop"
	OpDraw    OpKind = "draw"
	OpPresent OpKind = "present"
)

// Op is one recorded surface call. Draw ops carry the mesh and its fully
// transformed outline in surface pixels.
type Op struct {
	Kind   OpKind         `json:"op"`
	Color  string         `json:"color,omitempty"`
	Shape  string         `json:"shape,omitempty"`
	Center *[2]float64    `json:"center,omitempty"`
	Radius float64        `json:"radius,omitempty"`
	Points [][2]float64   `json:"points,omitempty"`
	Mesh   *resource.Mesh `json:"-"`
	Model  mgl64.Mat3     `json:"-"`
}

// Recorder is a Surface that keeps every call since the last Clear.
// OnPresent, if set, receives the ops of each presented frame.
type Recorder struct {
	W, H      float64
	Ops       []Op
	Presented int
	OnPresent func(w, h float64, ops []Op) error
	xf        transformStack
}

// NewRecorder returns a recorder with a w x h viewport.
func NewRecorder(w, h float64) *Recorder { return &Recorder{W: w, H: h} }

func (r *Recorder) Size() (float64, float64) { return r.W, r.H }

// Resize changes the viewport reported by Size.
func (r *Recorder) Resize(w, h float64) { r.W, r.H = w, h }

func (r *Recorder) Clear(bg tcell.Color) {
	r.Ops = r.Ops[:0]
	r.xf.reset()
	r.Ops = append(r.Ops, Op{Kind: OpClear, Color: colorName(bg)})
}

func (r *Recorder) PushTransform(m mgl64.Mat3) {
	r.xf.push(m)
	r.Ops = append(r.Ops, Op{Kind: OpPush, Model: m})
}

func (r *Recorder) PopTransform() {
	r.xf.pop()
	r.Ops = append(r.Ops, Op{Kind: OpPop})
}

func (r *Recorder) DrawMesh(m *resource.Mesh, model mgl64.Mat3) error {
	full := r.xf.top().Mul3(model)
	if err := validate(m, full); err != nil {
		return err
	}
	op := Op{Kind: OpDraw, Color: colorName(m.Color), Shape: m.Kind.String(), Mesh: m, Model: model}
	switch m.Kind {
	case resource.ShapeCircle:
		c := apply(full, mgl64.Vec2{})
		op.Center = &[2]float64{c.X(), c.Y()}
		op.Radius = m.Radius * scaleOf(full)
	case resource.ShapePolygon:
		op.Points = make([][2]float64, len(m.Points))
		for i, p := range m.Points {
			q := apply(full, p)
			op.Points[i] = [2]float64{q.X(), q.Y()}
		}
	}
	r.Ops = append(r.Ops, op)
	return nil
}

func (r *Recorder) Present() error {
	r.Ops = append(r.Ops, Op{Kind: OpPresent})
	r.Presented++
	if r.OnPresent != nil {
		return r.OnPresent(r.W, r.H, r.Ops)
	}
	return nil
}

// Draws returns the recorded draw ops in order.
func (r *Recorder) Draws() []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == OpDraw {
			out = append(out, op)
		}
	}
	return out
}

func colorName(c tcell.Color) string {
	if c == tcell.ColorDefault {
		return ""
	}
	return c.CSS()
}
