package render

import (
	"math"

	"fly/internal/config"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mattn/go-runewidth"
)

// Terminal rasterizes meshes onto a tcell screen. Every cell covers
// CellW x CellH surface pixels and is filled when its center falls inside a
// shape. The bottom row is reserved for the status line.
type Terminal struct {
	screen tcell.Screen
	cellW  float64
	cellH  float64
	status string
	xf     transformStack
}

// NewTerminal wraps screen. The screen must already be initialised.
func NewTerminal(screen tcell.Screen, cfg config.Terminal) *Terminal {
	t := &Terminal{screen: screen, cellW: cfg.CellW, cellH: cfg.CellH}
	if t.cellW <= 0 {
		t.cellW = 1
	}
	if t.cellH <= 0 {
		t.cellH = 1
	}
	return t
}

func (t *Terminal) rows() int {
	_, h := t.screen.Size()
	return max(h-1, 0)
}

func (t *Terminal) Size() (float64, float64) {
	w, _ := t.screen.Size()
	return float64(w) * t.cellW, float64(t.rows()) * t.cellH
}

func (t *Terminal) Clear(bg tcell.Color) {
	t.xf.reset()
	t.screen.Fill(' ', tcell.StyleDefault.Background(bg))
}

func (t *Terminal) PushTransform(m mgl64.Mat3) { t.xf.push(m) }

func (t *Terminal) PopTransform() { t.xf.pop() }

// Status sets the text drawn on the bottom row at the next Present.
func (t *Terminal) Status(text string) { t.status = text }

func (t *Terminal) DrawMesh(m *resource.Mesh, model mgl64.Mat3) error {
	full := t.xf.top().Mul3(model)
	if err := validate(m, full); err != nil {
		return err
	}
	style := tcell.StyleDefault.Background(m.Color).Foreground(tcell.ColorBlack)

	var inside func(p mgl64.Vec2) bool
	var lo, hi mgl64.Vec2
	switch m.Kind {
	case resource.ShapeCircle:
		c := apply(full, mgl64.Vec2{})
		r := m.Radius * scaleOf(full)
		lo, hi = c.Sub(mgl64.Vec2{r, r}), c.Add(mgl64.Vec2{r, r})
		inside = func(p mgl64.Vec2) bool { return p.Sub(c).LenSqr() <= r*r }
	case resource.ShapePolygon:
		pts := make([]mgl64.Vec2, len(m.Points))
		lo = mgl64.Vec2{math.Inf(1), math.Inf(1)}
		hi = mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
		for i, p := range m.Points {
			q := apply(full, p)
			pts[i] = q
			lo = mgl64.Vec2{math.Min(lo.X(), q.X()), math.Min(lo.Y(), q.Y())}
			hi = mgl64.Vec2{math.Max(hi.X(), q.X()), math.Max(hi.Y(), q.Y())}
		}
		inside = func(p mgl64.Vec2) bool { return pointInPolygon(p, pts) }
	}

	cols, rows := t.screen.Size()
	rows = t.rows()
	x0 := max(int(math.Floor(lo.X()/t.cellW)), 0)
	x1 := min(int(math.Ceil(hi.X()/t.cellW)), cols-1)
	y0 := max(int(math.Floor(lo.Y()/t.cellH)), 0)
	y1 := min(int(math.Ceil(hi.Y()/t.cellH)), rows-1)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			center := mgl64.Vec2{(float64(x) + 0.5) * t.cellW, (float64(y) + 0.5) * t.cellH}
			if inside(center) {
				t.screen.SetContent(x, y, ' ', nil, style)
			}
		}
	}

	if m.Glyph != 0 {
		c := apply(full, mgl64.Vec2{})
		x, y := int(math.Floor(c.X()/t.cellW)), int(math.Floor(c.Y()/t.cellH))
		if x >= 0 && x < cols && y >= 0 && y < rows {
			t.screen.SetContent(x, y, m.Glyph, nil, style)
		}
	}
	return nil
}

func (t *Terminal) Present() error {
	w, h := t.screen.Size()
	if h > 0 {
		style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
		for x := range w {
			t.screen.SetContent(x, h-1, ' ', nil, style)
		}
		col := 0
		for _, ch := range t.status {
			cw := runewidth.RuneWidth(ch)
			if cw == 0 {
				continue
			}
			if col+cw > w {
				break
			}
			t.screen.SetContent(col, h-1, ch, nil, style)
			col += cw
		}
	}
	t.screen.Show()
	return nil
}

// pointInPolygon is an even-odd test, so concave outlines work too.
func pointInPolygon(p mgl64.Vec2, pts []mgl64.Vec2) bool {
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y() > p.Y()) != (b.Y() > p.Y()) {
			x := a.X() + (p.Y()-a.Y())*(b.X()-a.X())/(b.Y()-a.Y())
			if p.X() < x {
				in = !in
			}
		}
	}
	return in
}
